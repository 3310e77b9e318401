package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/profitfirst/internal/service"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrInvalidAccount      = errors.New("invalid account")
	ErrInvalidBankAccount  = errors.New("invalid bank account")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidAllocation   = errors.New("invalid allocation")
	ErrInvalidDistribution = errors.New("invalid profit distribution")
	ErrMissingReference    = errors.New("referenced record does not exist")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateOwner(ctx context.Context, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return validateString(userID, "userID")
}

func validateAccounts(accounts []service.AccountRecord) error {
	if accounts == nil {
		return fmt.Errorf("%w: accounts", ErrNilParameter)
	}
	for i, acc := range accounts {
		switch {
		case acc.ID == "":
			return fmt.Errorf("account at index %d: %w: missing ID", i, ErrInvalidAccount)
		case acc.UserID == "":
			return fmt.Errorf("account %s: %w: missing owner", acc.ID, ErrInvalidAccount)
		case acc.Type == "":
			return fmt.Errorf("account %s: %w: missing type", acc.ID, ErrInvalidAccount)
		}
	}
	return nil
}

func validateBankAccounts(bankAccounts []service.BankAccountRecord) error {
	if bankAccounts == nil {
		return fmt.Errorf("%w: bank accounts", ErrNilParameter)
	}
	for i, ba := range bankAccounts {
		if ba.ID == "" {
			return fmt.Errorf("bank account at index %d: %w: missing ID", i, ErrInvalidBankAccount)
		}
		if ba.UserID == "" {
			return fmt.Errorf("bank account %s: %w: missing owner", ba.ID, ErrInvalidBankAccount)
		}
	}
	return nil
}

func validateTransactions(transactions []service.TransactionRecord) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	for i, txn := range transactions {
		switch {
		case txn.ID == "":
			return fmt.Errorf("transaction at index %d: %w: missing ID", i, ErrInvalidTransaction)
		case txn.UserID == "":
			return fmt.Errorf("transaction %s: %w: missing owner", txn.ID, ErrInvalidTransaction)
		case txn.Date.IsZero():
			return fmt.Errorf("transaction %s: %w: missing date", txn.ID, ErrInvalidTransaction)
		}
	}
	return nil
}

func validateAllocations(allocations []service.AllocationRecord) error {
	if allocations == nil {
		return fmt.Errorf("%w: allocations", ErrNilParameter)
	}
	for i, a := range allocations {
		if a.ID == "" || a.TransactionID == "" || a.AccountID == "" {
			return fmt.Errorf("allocation at index %d: %w: missing ID, transaction or account", i, ErrInvalidAllocation)
		}
	}
	return nil
}

func validateDistributions(distributions []service.DistributionRecord) error {
	if distributions == nil {
		return fmt.Errorf("%w: distributions", ErrNilParameter)
	}
	for i, d := range distributions {
		switch {
		case d.ID == "":
			return fmt.Errorf("distribution at index %d: %w: missing ID", i, ErrInvalidDistribution)
		case d.UserID == "":
			return fmt.Errorf("distribution %s: %w: missing owner", d.ID, ErrInvalidDistribution)
		case d.Date.IsZero():
			return fmt.Errorf("distribution %s: %w: missing date", d.ID, ErrInvalidDistribution)
		}
	}
	return nil
}

func validateProfile(ctx context.Context, profile service.ProfileRecord) error {
	if err := validateOwner(ctx, profile.ID); err != nil {
		return err
	}
	return validateString(profile.CurrencySymbol, "currencySymbol")
}

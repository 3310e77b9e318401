package migration

import (
	"context"
	"errors"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/service"
)

// Load reads the owner's full state. A failure reading one kind of record
// leaves that kind empty and is logged; Load itself only fails on a canceled
// context. A missing profile is created with the default currency.
func (o *Orchestrator) Load(ctx context.Context, owner string) (ledger.State, error) {
	if owner == "" {
		return ledger.State{}, common.ErrNoOwner
	}

	state := ledger.State{
		CurrencySymbol:      o.currency,
		Accounts:            []model.Account{},
		Transactions:        []model.Transaction{},
		BankAccounts:        []model.BankAccount{},
		ProfitDistributions: []model.ProfitDistribution{},
	}
	fields := common.Fields{"owner": owner}

	if records, err := o.store.ListAccounts(ctx, owner); err != nil {
		common.LogError(err, "Failed to load accounts", fields)
	} else {
		for _, r := range records {
			state.Accounts = append(state.Accounts, service.AccountFromRecord(r))
		}
	}

	if records, err := o.store.ListBankAccounts(ctx, owner); err != nil {
		common.LogError(err, "Failed to load bank accounts", fields)
	} else {
		for _, r := range records {
			state.BankAccounts = append(state.BankAccounts, service.BankAccountFromRecord(r))
		}
	}

	if records, err := o.store.ListTransactions(ctx, owner); err != nil {
		common.LogError(err, "Failed to load transactions", fields)
	} else {
		for _, r := range records {
			state.Transactions = append(state.Transactions, service.TransactionFromRecord(r))
		}
	}

	if records, err := o.store.ListDistributions(ctx, owner); err != nil {
		common.LogError(err, "Failed to load profit distributions", fields)
	} else {
		for _, r := range records {
			state.ProfitDistributions = append(state.ProfitDistributions, service.DistributionFromRecord(r))
		}
	}

	state.CurrencySymbol = o.loadCurrency(ctx, owner)

	if err := ctx.Err(); err != nil {
		return ledger.State{}, err
	}
	return state.WithCurrentPercentages(), nil
}

func (o *Orchestrator) loadCurrency(ctx context.Context, owner string) string {
	fields := common.Fields{"owner": owner}

	profile, err := o.store.GetProfile(ctx, owner)
	switch {
	case err == nil && profile.CurrencySymbol != "":
		return profile.CurrencySymbol
	case err == nil:
		return o.currency
	case errors.Is(err, common.ErrNotFound):
		common.LogInfo("Profile missing, creating it", fields)
		created := service.ProfileRecord{ID: owner, CurrencySymbol: o.currency}
		if err := o.store.UpsertProfile(ctx, created); err != nil {
			common.LogError(err, "Failed to create missing profile", fields)
		}
	default:
		common.LogError(err, "Failed to load profile", fields)
	}
	return o.currency
}

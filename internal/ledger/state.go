// Package ledger holds one owner's in-memory Profit First state and the
// transitions that change it.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
)

// DefaultCurrency is used when the owner has no profile.
const DefaultCurrency = "USD"

// State is a single owner's accounts, history and preferences.
type State struct {
	CurrencySymbol      string
	Accounts            []model.Account
	Transactions        []model.Transaction // Newest first
	BankAccounts        []model.BankAccount
	ProfitDistributions []model.ProfitDistribution // Newest first
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		CurrencySymbol:      s.CurrencySymbol,
		Accounts:            slices.Clone(s.Accounts),
		BankAccounts:        slices.Clone(s.BankAccounts),
		ProfitDistributions: slices.Clone(s.ProfitDistributions),
		Transactions:        make([]model.Transaction, len(s.Transactions)),
	}
	for i, t := range s.Transactions {
		t.Allocations = slices.Clone(t.Allocations)
		out.Transactions[i] = t
	}
	if s.Transactions == nil {
		out.Transactions = nil
	}
	return out
}

// WithCurrentPercentages recomputes each non-INCOME account's share of the
// total non-INCOME balance.
func (s State) WithCurrentPercentages() State {
	out := s.Clone()

	total := decimal.Zero
	for _, acc := range out.Accounts {
		if acc.Type != model.AccountTypeIncome {
			total = total.Add(acc.Balance)
		}
	}

	hundred := decimal.NewFromInt(100)
	for i := range out.Accounts {
		acc := &out.Accounts[i]
		if acc.Type == model.AccountTypeIncome || !total.IsPositive() {
			acc.CurrentPercentage = 0
			continue
		}
		acc.CurrentPercentage = acc.Balance.Div(total).Mul(hundred).Round(2).InexactFloat64()
	}
	return out
}

// Account returns the account with the given id.
func (s State) Account(id string) (model.Account, bool) {
	for _, acc := range s.Accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return model.Account{}, false
}

// TotalBalance sums every account balance.
func (s State) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, acc := range s.Accounts {
		total = total.Add(acc.Balance)
	}
	return total
}

// Export renders the state as an import/export document stamped with at.
func (s State) Export(at time.Time) payload.Payload {
	p := payload.Payload{
		ExportDate:          payload.FormatTime(at),
		CurrencySymbol:      s.CurrencySymbol,
		Accounts:            make([]payload.Account, len(s.Accounts)),
		Transactions:        make([]payload.Transaction, len(s.Transactions)),
		BankAccounts:        make([]payload.BankAccount, len(s.BankAccounts)),
		ProfitDistributions: make([]payload.ProfitDistribution, len(s.ProfitDistributions)),
	}
	for i, a := range s.Accounts {
		p.Accounts[i] = payload.AccountFrom(a)
	}
	for i, t := range s.Transactions {
		p.Transactions[i] = payload.TransactionFrom(t)
	}
	for i, b := range s.BankAccounts {
		p.BankAccounts[i] = payload.BankAccountFrom(b)
	}
	for i, d := range s.ProfitDistributions {
		p.ProfitDistributions[i] = payload.DistributionFrom(d)
	}
	return p
}

// FromPayload builds a state from a decoded document. An empty currency
// symbol falls back to DefaultCurrency.
func FromPayload(p payload.Payload) (State, error) {
	s := State{
		CurrencySymbol: p.CurrencySymbol,
		Accounts:       make([]model.Account, len(p.Accounts)),
		BankAccounts:   make([]model.BankAccount, len(p.BankAccounts)),
	}
	if s.CurrencySymbol == "" {
		s.CurrencySymbol = DefaultCurrency
	}

	for i, a := range p.Accounts {
		s.Accounts[i] = a.Model()
	}
	for i, b := range p.BankAccounts {
		s.BankAccounts[i] = b.Model()
	}
	for _, t := range p.Transactions {
		tx, err := t.Model()
		if err != nil {
			return State{}, fmt.Errorf("failed to read transactions: %w", err)
		}
		s.Transactions = append(s.Transactions, tx)
	}
	for _, d := range p.ProfitDistributions {
		dist, err := d.Model()
		if err != nil {
			return State{}, fmt.Errorf("failed to read profit distributions: %w", err)
		}
		s.ProfitDistributions = append(s.ProfitDistributions, dist)
	}
	return s, nil
}

// IsEmpty reports whether the state holds neither accounts nor transactions.
func (s State) IsEmpty() bool {
	return len(s.Accounts) == 0 && len(s.Transactions) == 0
}

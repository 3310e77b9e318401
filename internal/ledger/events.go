package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/model"
)

// ErrInvalidEvent reports an event whose fields cannot be applied.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a state transition.
type Event interface {
	event()
}

// TransactionAdded records income and credits each allocation to its account.
type TransactionAdded struct {
	Transaction model.Transaction
}

// DistributionAdded records a profit distribution and debits the PROFIT
// account by its distribution amount.
type DistributionAdded struct {
	Distribution model.ProfitDistribution
}

// DistributionToggled flips a distribution's completion flag.
type DistributionToggled struct {
	ID string
}

// AccountTargetSet changes an account's target percentage.
type AccountTargetSet struct {
	AccountID string
	Target    float64
}

// CurrencySet changes the owner's currency symbol.
type CurrencySet struct {
	Symbol string
}

// AccountsInitialized adds newly seeded accounts.
type AccountsInitialized struct {
	Accounts []model.Account
}

func (TransactionAdded) event()    {}
func (DistributionAdded) event()   {}
func (DistributionToggled) event() {}
func (AccountTargetSet) event()    {}
func (CurrencySet) event()         {}
func (AccountsInitialized) event() {}

// Apply returns the state that results from e. s is never modified.
func Apply(s State, e Event) (State, error) {
	next := s.Clone()

	switch ev := e.(type) {
	case TransactionAdded:
		if ev.Transaction.ID == "" {
			return s, fmt.Errorf("%w: transaction has no id", ErrInvalidEvent)
		}
		for _, a := range ev.Transaction.Allocations {
			i := indexOfAccount(next.Accounts, a.AccountID)
			if i < 0 {
				return s, fmt.Errorf("allocation account %s: %w", a.AccountID, common.ErrNotFound)
			}
			next.Accounts[i].Balance = next.Accounts[i].Balance.Add(a.Amount)
		}
		next.Transactions = append([]model.Transaction{ev.Transaction}, next.Transactions...)

	case DistributionAdded:
		i := indexOfType(next.Accounts, model.AccountTypeProfit)
		if i < 0 {
			return s, common.ErrNoProfitAccount
		}
		next.Accounts[i].Balance = next.Accounts[i].Balance.Sub(ev.Distribution.DistributionAmount)
		next.ProfitDistributions = append([]model.ProfitDistribution{ev.Distribution}, next.ProfitDistributions...)

	case DistributionToggled:
		found := false
		for i := range next.ProfitDistributions {
			if next.ProfitDistributions[i].ID == ev.ID {
				next.ProfitDistributions[i].IsCompleted = !next.ProfitDistributions[i].IsCompleted
				found = true
				break
			}
		}
		if !found {
			return s, fmt.Errorf("profit distribution %s: %w", ev.ID, common.ErrNotFound)
		}

	case AccountTargetSet:
		if ev.Target < 0 || ev.Target > 100 {
			return s, fmt.Errorf("%w: target %.2f is outside 0-100", ErrInvalidEvent, ev.Target)
		}
		i := indexOfAccount(next.Accounts, ev.AccountID)
		if i < 0 {
			return s, fmt.Errorf("account %s: %w", ev.AccountID, common.ErrNotFound)
		}
		next.Accounts[i].TargetPercentage = ev.Target

	case CurrencySet:
		symbol := strings.TrimSpace(ev.Symbol)
		if symbol == "" {
			return s, fmt.Errorf("%w: empty currency symbol", ErrInvalidEvent)
		}
		next.CurrencySymbol = symbol

	case AccountsInitialized:
		for _, acc := range ev.Accounts {
			if indexOfAccount(next.Accounts, acc.ID) >= 0 {
				return s, fmt.Errorf("account %s: %w", acc.ID, common.ErrDuplicateEntry)
			}
		}
		next.Accounts = append(next.Accounts, ev.Accounts...)

	default:
		return s, fmt.Errorf("%w: %T", ErrInvalidEvent, e)
	}

	return next.WithCurrentPercentages(), nil
}

func indexOfAccount(accounts []model.Account, id string) int {
	for i, acc := range accounts {
		if acc.ID == id {
			return i
		}
	}
	return -1
}

func indexOfType(accounts []model.Account, t model.AccountType) int {
	for i, acc := range accounts {
		if acc.Type == t {
			return i
		}
	}
	return -1
}

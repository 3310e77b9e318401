package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction records one income allocation event. It is never mutated
// once created.
type Transaction struct {
	Date        time.Time
	TotalAmount decimal.Decimal
	ID          string
	Description string
	Allocations []Allocation
}

// Allocation is one line of a transaction's split across buckets.
type Allocation struct {
	Amount    decimal.Decimal
	AccountID string
}

// AllocationTolerance is the largest absolute difference between a
// transaction's total and the sum of its allocations that is not reported.
var AllocationTolerance = decimal.NewFromFloat(0.1)

// Amount bounds. Arithmetic between decimals rescales to the smaller
// exponent, so a single 1e200000000 would allocate without limit.
const (
	MaxAmountExponent = 30
	maxAmountBits     = 128
)

// AmountInRange reports whether d is small enough to take part in ledger
// arithmetic.
func AmountInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > MaxAmountExponent || exp < -MaxAmountExponent {
		return false
	}
	return d.Coefficient().BitLen() <= maxAmountBits
}

// AllocationSum adds up the transaction's allocation amounts.
func (t *Transaction) AllocationSum() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range t.Allocations {
		sum = sum.Add(a.Amount)
	}
	return sum
}

// Balanced reports whether the allocations match the total within tolerance.
func (t *Transaction) Balanced() bool {
	return t.AllocationSum().Sub(t.TotalAmount).Abs().LessThanOrEqual(AllocationTolerance)
}

// Allocate splits amount across every non-INCOME account by its target percentage.
func Allocate(accounts []Account, amount decimal.Decimal) []Allocation {
	hundred := decimal.NewFromInt(100)

	allocations := make([]Allocation, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Type == AccountTypeIncome {
			continue
		}
		allocations = append(allocations, Allocation{
			AccountID: acc.ID,
			Amount:    amount.Mul(decimal.NewFromFloat(acc.TargetPercentage)).Div(hundred),
		})
	}
	return allocations
}

// NewIncomeTransaction builds a transaction that splits amount by the accounts' targets.
func NewIncomeTransaction(accounts []Account, amount decimal.Decimal, description string, at time.Time) Transaction {
	if description == "" {
		description = "Income Allocation"
	}
	return Transaction{
		ID:          uuid.NewString(),
		Date:        at.UTC(),
		Description: description,
		TotalAmount: amount,
		Allocations: Allocate(accounts, amount),
	}
}

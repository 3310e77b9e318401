// Package model defines the Profit First domain entities.
package model

import (
	"github.com/shopspring/decimal"
)

// AccountType identifies which Profit First bucket an account represents.
type AccountType string

const (
	// AccountTypeIncome receives new money before it is allocated.
	AccountTypeIncome AccountType = "INCOME"
	// AccountTypeProfit accumulates profit until a quarterly distribution.
	AccountTypeProfit AccountType = "PROFIT"
	// AccountTypeOwnersComp holds the owners' pay.
	AccountTypeOwnersComp AccountType = "OWNERS_COMP"
	// AccountTypeTax holds money set aside for tax.
	AccountTypeTax AccountType = "TAX"
	// AccountTypeOpex holds operating expenses.
	AccountTypeOpex AccountType = "OPEX"
)

// CoreAccountTypes are the allocation targets, in display order.
var CoreAccountTypes = []AccountType{
	AccountTypeProfit,
	AccountTypeOwnersComp,
	AccountTypeTax,
	AccountTypeOpex,
}

// Valid reports whether t is one of the fixed account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeIncome, AccountTypeProfit, AccountTypeOwnersComp, AccountTypeTax, AccountTypeOpex:
		return true
	}
	return false
}

// Account is a named bucket of money.
type Account struct {
	Balance           decimal.Decimal
	ID                string
	Name              string
	Type              AccountType
	BankAccountID     string  // Empty when not linked
	TargetPercentage  float64 // TAPS, 0-100
	CurrentPercentage float64 // CAPS, informational
}

// FindByType returns the first account of the given type.
func FindByType(accounts []Account, t AccountType) (Account, bool) {
	for _, acc := range accounts {
		if acc.Type == t {
			return acc, true
		}
	}
	return Account{}, false
}

// TypeIndex maps each account type to the id of the first account of that type.
func TypeIndex(accounts []Account) map[AccountType]string {
	index := make(map[AccountType]string, len(accounts))
	for _, acc := range accounts {
		if _, ok := index[acc.Type]; !ok {
			index[acc.Type] = acc.ID
		}
	}
	return index
}

// TargetSum adds up target percentages of every non-INCOME account.
func TargetSum(accounts []Account) float64 {
	var sum float64
	for _, acc := range accounts {
		if acc.Type == AccountTypeIncome {
			continue
		}
		sum += acc.TargetPercentage
	}
	return sum
}

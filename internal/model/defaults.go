package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultAccounts returns the five starter buckets seeded for a new owner.
func DefaultAccounts() []Account {
	return []Account{
		newAccount("Real Revenue", AccountTypeIncome, 0),
		newAccount("Company Profit", AccountTypeProfit, 40),
		newAccount("Owner's Comp", AccountTypeOwnersComp, 20),
		newAccount("Tax/Zakat", AccountTypeTax, 10),
		newAccount("Operating Expense", AccountTypeOpex, 30),
	}
}

var coreAccountNames = map[AccountType]string{
	AccountTypeProfit:     "Profit",
	AccountTypeOwnersComp: "Owner's Comp",
	AccountTypeTax:        "Tax",
	AccountTypeOpex:       "Operating Exp",
}

// MissingCoreAccounts returns new zero-target accounts for every core type
// that has no account in existing.
func MissingCoreAccounts(existing []Account) []Account {
	present := TypeIndex(existing)

	var missing []Account
	for _, t := range CoreAccountTypes {
		if _, ok := present[t]; ok {
			continue
		}
		missing = append(missing, newAccount(coreAccountNames[t], t, 0))
	}
	return missing
}

func newAccount(name string, t AccountType, target float64) Account {
	return Account{
		ID:               uuid.NewString(),
		Name:             name,
		Type:             t,
		TargetPercentage: target,
		Balance:          decimal.Zero,
	}
}

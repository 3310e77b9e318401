package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRecord is a row of the accounts table.
type AccountRecord struct {
	CreatedAt         time.Time
	Balance           decimal.Decimal
	ID                string
	UserID            string
	Name              string
	Type              string
	BankAccountID     string
	TargetPercentage  float64
	CurrentPercentage float64
}

// BankAccountRecord is a row of the bank_accounts table.
type BankAccountRecord struct {
	CreatedAt     time.Time
	ID            string
	UserID        string
	BankName      string
	BranchName    string
	AccountNumber string
	AccountType   string
	RoutingNumber string
	SwiftCode     string
}

// TransactionRecord is a row of the transactions table together with its
// allocation rows.
type TransactionRecord struct {
	Date        time.Time
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
	ID          string
	UserID      string
	Description string
	Allocations []AllocationRecord
}

// AllocationRecord is a row of the transaction_allocations table.
type AllocationRecord struct {
	Amount        decimal.Decimal
	ID            string
	TransactionID string
	AccountID     string
}

// DistributionRecord is a row of the profit_distributions table.
type DistributionRecord struct {
	Date               time.Time
	CreatedAt          time.Time
	TotalProfit        decimal.Decimal
	DistributionAmount decimal.Decimal
	ToOwners           decimal.Decimal
	ToCompany          decimal.Decimal
	ID                 string
	UserID             string
	Quarter            string
	Notes              string
	IsCompleted        bool
}

// ProfileRecord is a row of the profiles table, keyed by owner id.
type ProfileRecord struct {
	UpdatedAt      time.Time
	ID             string
	CurrencySymbol string
}

package model

import "time"

// BankAccount describes a real-world account a bucket can be linked to.
type BankAccount struct {
	CreatedAt     time.Time
	ID            string
	BankName      string
	BranchName    string
	AccountNumber string // Last digits or masked
	AccountType   string // e.g. "Personal", "Business"
	RoutingNumber string
	SwiftCode     string
}

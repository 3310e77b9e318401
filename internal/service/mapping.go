package service

import (
	"github.com/google/uuid"

	"github.com/Veraticus/profitfirst/internal/model"
)

// AccountToRecord maps a domain account onto its owner-scoped row.
func AccountToRecord(owner string, a model.Account) AccountRecord {
	return AccountRecord{
		ID:                a.ID,
		UserID:            owner,
		Name:              a.Name,
		Type:              string(a.Type),
		TargetPercentage:  a.TargetPercentage,
		CurrentPercentage: a.CurrentPercentage,
		Balance:           a.Balance,
		BankAccountID:     a.BankAccountID,
	}
}

// AccountFromRecord maps a row back onto the domain account.
func AccountFromRecord(r AccountRecord) model.Account {
	return model.Account{
		ID:                r.ID,
		Name:              r.Name,
		Type:              model.AccountType(r.Type),
		TargetPercentage:  r.TargetPercentage,
		CurrentPercentage: r.CurrentPercentage,
		Balance:           r.Balance,
		BankAccountID:     r.BankAccountID,
	}
}

// BankAccountToRecord maps a domain bank account onto its row.
func BankAccountToRecord(owner string, b model.BankAccount) BankAccountRecord {
	return BankAccountRecord{
		ID:            b.ID,
		UserID:        owner,
		BankName:      b.BankName,
		BranchName:    b.BranchName,
		AccountNumber: b.AccountNumber,
		AccountType:   b.AccountType,
		RoutingNumber: b.RoutingNumber,
		SwiftCode:     b.SwiftCode,
		CreatedAt:     b.CreatedAt,
	}
}

// BankAccountFromRecord maps a row back onto the domain bank account.
func BankAccountFromRecord(r BankAccountRecord) model.BankAccount {
	return model.BankAccount{
		ID:            r.ID,
		BankName:      r.BankName,
		BranchName:    r.BranchName,
		AccountNumber: r.AccountNumber,
		AccountType:   r.AccountType,
		RoutingNumber: r.RoutingNumber,
		SwiftCode:     r.SwiftCode,
		CreatedAt:     r.CreatedAt,
	}
}

// TransactionToRecord maps a domain transaction onto its row.
// Allocations are mapped separately by AllocationsToRecords.
func TransactionToRecord(owner string, t model.Transaction) TransactionRecord {
	return TransactionRecord{
		ID:          t.ID,
		UserID:      owner,
		Date:        t.Date,
		Description: t.Description,
		TotalAmount: t.TotalAmount,
	}
}

// AllocationsToRecords flattens a transaction's allocations into rows with
// fresh row ids.
func AllocationsToRecords(t model.Transaction) []AllocationRecord {
	records := make([]AllocationRecord, len(t.Allocations))
	for i, a := range t.Allocations {
		records[i] = AllocationRecord{
			ID:            uuid.NewString(),
			TransactionID: t.ID,
			AccountID:     a.AccountID,
			Amount:        a.Amount,
		}
	}
	return records
}

// TransactionFromRecord maps a row and its allocation rows back onto the
// domain transaction.
func TransactionFromRecord(r TransactionRecord) model.Transaction {
	allocations := make([]model.Allocation, len(r.Allocations))
	for i, a := range r.Allocations {
		allocations[i] = model.Allocation{AccountID: a.AccountID, Amount: a.Amount}
	}
	return model.Transaction{
		ID:          r.ID,
		Date:        r.Date,
		Description: r.Description,
		TotalAmount: r.TotalAmount,
		Allocations: allocations,
	}
}

// DistributionToRecord maps a domain profit distribution onto its row.
func DistributionToRecord(owner string, d model.ProfitDistribution) DistributionRecord {
	return DistributionRecord{
		ID:                 d.ID,
		UserID:             owner,
		Date:               d.Date,
		Quarter:            d.Quarter,
		TotalProfit:        d.TotalProfit,
		DistributionAmount: d.DistributionAmount,
		ToOwners:           d.ToOwners,
		ToCompany:          d.ToCompany,
		Notes:              d.Notes,
		IsCompleted:        d.IsCompleted,
	}
}

// DistributionFromRecord maps a row back onto the domain profit distribution.
func DistributionFromRecord(r DistributionRecord) model.ProfitDistribution {
	return model.ProfitDistribution{
		ID:                 r.ID,
		Date:               r.Date,
		Quarter:            r.Quarter,
		TotalProfit:        r.TotalProfit,
		DistributionAmount: r.DistributionAmount,
		ToOwners:           r.ToOwners,
		ToCompany:          r.ToCompany,
		Notes:              r.Notes,
		IsCompleted:        r.IsCompleted,
	}
}

// Package importer merges a validated payload into the store for one owner.
package importer

import (
	"fmt"

	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
	"github.com/Veraticus/profitfirst/internal/service"
)

// Plan is a payload resolved against an owner's current accounts and mapped
// onto store records, ready to commit.
type Plan struct {
	Owner          string
	CurrencySymbol string
	BankAccounts   []service.BankAccountRecord
	Accounts       []service.AccountRecord
	Transactions   []service.TransactionRecord
	Allocations    []service.AllocationRecord
	Distributions  []service.DistributionRecord
}

// TransactionIDs returns the ids of the planned transactions in payload order.
func (p Plan) TransactionIDs() []string {
	ids := make([]string, len(p.Transactions))
	for i, t := range p.Transactions {
		ids[i] = t.ID
	}
	return ids
}

// Resolve binds the payload to the owner's current accounts.
//
// Each payload account whose type already has a current account is merged
// into it: the current row keeps its id, name, target and bank link and takes
// only the payload's balance. Other accounts keep their own id. Allocations
// are then rewritten from payload account id to type to resolved id. Anything
// that cannot be resolved, or a transaction or distribution id that repeats,
// is reported and the returned plan must not be committed.
func Resolve(owner string, current []model.Account, p payload.Payload) (Plan, payload.Report) {
	var report payload.Report
	plan := Plan{
		Owner:          owner,
		CurrencySymbol: p.CurrencySymbol,
	}

	currentByType := model.TypeIndex(current)
	currentByID := make(map[string]model.Account, len(current))
	for _, acc := range current {
		currentByID[acc.ID] = acc
	}

	// payload account id -> resolved id
	resolved := make(map[string]string, len(p.Accounts))
	seen := make(map[string]bool, len(p.Accounts))
	for i, wire := range p.Accounts {
		acc := wire.Model()
		if !acc.Type.Valid() {
			report.Findings = append(report.Findings, payload.Finding{
				Severity: payload.SeverityError,
				Path:     fmt.Sprintf("accounts[%d]", i),
				Message:  fmt.Sprintf("account type %q cannot be resolved", acc.Type),
			})
			continue
		}

		if id, ok := currentByType[acc.Type]; ok {
			balance := acc.Balance
			acc = currentByID[id]
			acc.Balance = balance
		}
		resolved[wire.ID] = acc.ID

		// Several payload accounts of one type collapse onto the same row;
		// the first one wins.
		if seen[acc.ID] {
			continue
		}
		seen[acc.ID] = true
		plan.Accounts = append(plan.Accounts, service.AccountToRecord(owner, acc))
	}

	for _, wire := range p.BankAccounts {
		plan.BankAccounts = append(plan.BankAccounts, service.BankAccountToRecord(owner, wire.Model()))
	}

	txSeen := make(map[string]bool, len(p.Transactions))
	for i, wire := range p.Transactions {
		path := fmt.Sprintf("transactions[%d]", i)
		if txSeen[wire.ID] {
			report.Findings = append(report.Findings, payload.Finding{
				Severity: payload.SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("transaction id %q repeats an earlier transaction", wire.ID),
			})
			continue
		}
		txSeen[wire.ID] = true

		tx, err := wire.Model()
		if err != nil {
			report.Findings = append(report.Findings, payload.Finding{
				Severity: payload.SeverityError,
				Path:     path,
				Message:  err.Error(),
			})
			continue
		}

		ok := true
		for j := range tx.Allocations {
			id, found := resolved[tx.Allocations[j].AccountID]
			if !found {
				report.Findings = append(report.Findings, payload.Finding{
					Severity: payload.SeverityError,
					Path:     fmt.Sprintf("%s.allocations[%d]", path, j),
					Message:  fmt.Sprintf("allocation account %q cannot be resolved", tx.Allocations[j].AccountID),
				})
				ok = false
				continue
			}
			tx.Allocations[j].AccountID = id
		}
		if !ok {
			continue
		}

		plan.Transactions = append(plan.Transactions, service.TransactionToRecord(owner, tx))
		plan.Allocations = append(plan.Allocations, service.AllocationsToRecords(tx)...)
	}

	distSeen := make(map[string]bool, len(p.ProfitDistributions))
	for i, wire := range p.ProfitDistributions {
		path := fmt.Sprintf("profitDistributions[%d]", i)
		if distSeen[wire.ID] {
			report.Findings = append(report.Findings, payload.Finding{
				Severity: payload.SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("profit distribution id %q repeats an earlier distribution", wire.ID),
			})
			continue
		}
		distSeen[wire.ID] = true

		d, err := wire.Model()
		if err != nil {
			report.Findings = append(report.Findings, payload.Finding{
				Severity: payload.SeverityError,
				Path:     path,
				Message:  err.Error(),
			})
			continue
		}
		plan.Distributions = append(plan.Distributions, service.DistributionToRecord(owner, d))
	}

	return plan, report
}

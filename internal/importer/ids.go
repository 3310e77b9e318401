package importer

import (
	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/service"
)

func accountsFromRecords(records []service.AccountRecord) []model.Account {
	accounts := make([]model.Account, len(records))
	for i, r := range records {
		accounts[i] = service.AccountFromRecord(r)
	}
	return accounts
}

func accountIDs(records []service.AccountRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func bankAccountIDs(records []service.BankAccountRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func transactionIDs(records []service.TransactionRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func distributionIDs(records []service.DistributionRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// Package payload defines the JSON import/export document and its validator.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/model"
)

func init() {
	// Money is exchanged as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// TimeLayout is ISO-8601 with milliseconds, always rendered in UTC with a Z suffix.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Payload is the import/export document.
type Payload struct {
	ExportDate          string               `json:"exportDate,omitempty"`
	CurrencySymbol      string               `json:"currencySymbol,omitempty"`
	Accounts            []Account            `json:"accounts"`
	Transactions        []Transaction        `json:"transactions"`
	BankAccounts        []BankAccount        `json:"bankAccounts,omitempty"`
	ProfitDistributions []ProfitDistribution `json:"profitDistributions,omitempty"`
}

// Account is the wire form of model.Account.
type Account struct {
	Balance           decimal.Decimal `json:"balance"`
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	BankAccountID     string          `json:"bankAccountId,omitempty"`
	TargetPercentage  float64         `json:"targetPercentage"`
	CurrentPercentage float64         `json:"currentPercentage"`
}

// Transaction is the wire form of model.Transaction.
type Transaction struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Allocations []Allocation    `json:"allocations"`
}

// Allocation is the wire form of model.Allocation.
type Allocation struct {
	Amount    decimal.Decimal `json:"amount"`
	AccountID string          `json:"accountId"`
}

// BankAccount is the wire form of model.BankAccount.
type BankAccount struct {
	ID            string `json:"id"`
	BankName      string `json:"bankName"`
	BranchName    string `json:"branchName"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
	RoutingNumber string `json:"routingNumber,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// ProfitDistribution is the wire form of model.ProfitDistribution.
type ProfitDistribution struct {
	TotalProfit        decimal.Decimal `json:"totalProfit"`
	DistributionAmount decimal.Decimal `json:"distributionAmount"`
	ToOwners           decimal.Decimal `json:"toOwners"`
	ToCompany          decimal.Decimal `json:"toCompany"`
	ID                 string          `json:"id"`
	Date               string          `json:"date"`
	Quarter            string          `json:"quarter"`
	Notes              string          `json:"notes,omitempty"`
	IsCompleted        bool            `json:"isCompleted"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts RFC 3339 timestamps with or without fractional seconds,
// and bare dates, returning UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// DecodeRaw parses JSON into an untyped tree with numbers kept as json.Number,
// suitable for Validate.
func DecodeRaw(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnsupportedInput, err)
	}
	return raw, nil
}

// Parse validates data and decodes it into a Payload. The payload is only
// decoded when the report has no errors.
func Parse(data []byte) (Payload, Report, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return Payload{}, Report{}, err
	}

	report := Validate(raw)
	if report.HasErrors() {
		return Payload{}, report, nil
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, report, fmt.Errorf("failed to decode payload: %w", err)
	}
	return p, report, nil
}

// Marshal renders the payload as indented JSON.
func (p Payload) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Raw round-trips a typed payload through JSON into the untyped form Validate
// expects. Parsed spreadsheets are validated this way before commit.
func (p Payload) Raw() (any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return DecodeRaw(data)
}

// AccountFrom converts a domain account.
func AccountFrom(a model.Account) Account {
	return Account{
		ID:                a.ID,
		Name:              a.Name,
		Type:              string(a.Type),
		TargetPercentage:  a.TargetPercentage,
		CurrentPercentage: a.CurrentPercentage,
		Balance:           a.Balance,
		BankAccountID:     a.BankAccountID,
	}
}

// Model converts the wire account to a domain account.
func (a Account) Model() model.Account {
	return model.Account{
		ID:                a.ID,
		Name:              a.Name,
		Type:              model.AccountType(a.Type),
		TargetPercentage:  a.TargetPercentage,
		CurrentPercentage: a.CurrentPercentage,
		Balance:           a.Balance,
		BankAccountID:     a.BankAccountID,
	}
}

// TransactionFrom converts a domain transaction.
func TransactionFrom(t model.Transaction) Transaction {
	allocations := make([]Allocation, len(t.Allocations))
	for i, a := range t.Allocations {
		allocations[i] = Allocation{AccountID: a.AccountID, Amount: a.Amount}
	}
	return Transaction{
		ID:          t.ID,
		Date:        FormatTime(t.Date),
		Description: t.Description,
		TotalAmount: t.TotalAmount,
		Allocations: allocations,
	}
}

// Model converts the wire transaction to a domain transaction.
func (t Transaction) Model() (model.Transaction, error) {
	date, err := ParseTime(t.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}

	allocations := make([]model.Allocation, len(t.Allocations))
	for i, a := range t.Allocations {
		allocations[i] = model.Allocation{AccountID: a.AccountID, Amount: a.Amount}
	}
	return model.Transaction{
		ID:          t.ID,
		Date:        date,
		Description: t.Description,
		TotalAmount: t.TotalAmount,
		Allocations: allocations,
	}, nil
}

// BankAccountFrom converts a domain bank account.
func BankAccountFrom(b model.BankAccount) BankAccount {
	return BankAccount{
		ID:            b.ID,
		BankName:      b.BankName,
		BranchName:    b.BranchName,
		AccountNumber: b.AccountNumber,
		AccountType:   b.AccountType,
		RoutingNumber: b.RoutingNumber,
		SwiftCode:     b.SwiftCode,
		CreatedAt:     FormatTime(b.CreatedAt),
	}
}

// Model converts the wire bank account. A missing or unreadable creation
// time becomes the zero time.
func (b BankAccount) Model() model.BankAccount {
	created, _ := ParseTime(b.CreatedAt)
	return model.BankAccount{
		ID:            b.ID,
		BankName:      b.BankName,
		BranchName:    b.BranchName,
		AccountNumber: b.AccountNumber,
		AccountType:   b.AccountType,
		RoutingNumber: b.RoutingNumber,
		SwiftCode:     b.SwiftCode,
		CreatedAt:     created,
	}
}

// DistributionFrom converts a domain profit distribution.
func DistributionFrom(d model.ProfitDistribution) ProfitDistribution {
	return ProfitDistribution{
		ID:                 d.ID,
		Date:               FormatTime(d.Date),
		Quarter:            d.Quarter,
		TotalProfit:        d.TotalProfit,
		DistributionAmount: d.DistributionAmount,
		ToOwners:           d.ToOwners,
		ToCompany:          d.ToCompany,
		Notes:              d.Notes,
		IsCompleted:        d.IsCompleted,
	}
}

// Model converts the wire profit distribution.
func (d ProfitDistribution) Model() (model.ProfitDistribution, error) {
	date, err := ParseTime(d.Date)
	if err != nil {
		return model.ProfitDistribution{}, fmt.Errorf("distribution %s: %w", d.ID, err)
	}
	return model.ProfitDistribution{
		ID:                 d.ID,
		Date:               date,
		Quarter:            d.Quarter,
		TotalProfit:        d.TotalProfit,
		DistributionAmount: d.DistributionAmount,
		ToOwners:           d.ToOwners,
		ToCompany:          d.ToCompany,
		Notes:              d.Notes,
		IsCompleted:        d.IsCompleted,
	}, nil
}

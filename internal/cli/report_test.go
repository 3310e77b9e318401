package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/profitfirst/internal/importer"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		amount decimal.Decimal
		want   string
	}{
		{name: "dollar", symbol: "$", amount: decimal.NewFromInt(1000), want: "$1000.00"},
		{name: "negative", symbol: "$", amount: decimal.RequireFromString("-12.5"), want: "-$12.50"},
		{name: "code", symbol: "USD", amount: decimal.RequireFromString("0.1"), want: "USD 0.10"},
		{name: "taka", symbol: "৳", amount: decimal.RequireFromString("250.255"), want: "৳250.26"},
		{name: "no symbol", symbol: "", amount: decimal.Zero, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.symbol, tt.amount))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "40%", FormatPercent(40))
	assert.Equal(t, "33.33%", FormatPercent(33.3333))
	assert.Equal(t, "0%", FormatPercent(0))
}

func bucketState() ledger.State {
	return ledger.State{
		CurrencySymbol: "$",
		Accounts: []model.Account{
			{ID: "a-income", Name: "Real Revenue", Type: model.AccountTypeIncome},
			{ID: "a-profit", Name: "Company Profit", Type: model.AccountTypeProfit, TargetPercentage: 40, Balance: decimal.NewFromInt(400)},
			{ID: "a-comp", Name: "Owner's Comp", Type: model.AccountTypeOwnersComp, TargetPercentage: 20, Balance: decimal.NewFromInt(200)},
			{ID: "a-tax", Name: "Tax/Zakat", Type: model.AccountTypeTax, TargetPercentage: 10, Balance: decimal.NewFromInt(100)},
			{ID: "a-opex", Name: "Operating Expense", Type: model.AccountTypeOpex, TargetPercentage: 30, Balance: decimal.NewFromInt(-50)},
		},
	}.WithCurrentPercentages()
}

func TestWriteBuckets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteBuckets(&out, bucketState()))

	text := out.String()
	assert.Contains(t, text, "Company Profit")
	assert.Contains(t, text, "$400.00")
	assert.Contains(t, text, "-$50.00")
	assert.Contains(t, text, "Total")
	assert.Contains(t, text, "$650.00")
	assert.Contains(t, text, "100%")
	assert.NotContains(t, text, "not 100%")
}

func TestWriteBuckets_WarnsWhenTargetsDrift(t *testing.T) {
	s := bucketState()
	s.Accounts[1].TargetPercentage = 50

	var out bytes.Buffer
	require.NoError(t, WriteBuckets(&out, s))
	assert.Contains(t, out.String(), "add up to 110%, not 100%")
}

func TestWriteDistributions(t *testing.T) {
	dists := []model.ProfitDistribution{
		{
			ID:                 "dist-2",
			Quarter:            "Q2 2025",
			Date:               time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			DistributionAmount: decimal.NewFromInt(500),
			ToOwners:           decimal.NewFromInt(250),
			ToCompany:          decimal.NewFromInt(250),
			IsCompleted:        true,
		},
		{ID: "dist-1", Quarter: "Q1 2025", Date: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("all", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, WriteDistributions(&out, "$", dists, 0))
		text := out.String()
		assert.Contains(t, text, "Q2 2025")
		assert.Contains(t, text, "2025-06-30")
		assert.Contains(t, text, "$500.00")
		assert.Contains(t, text, "completed")
		assert.Contains(t, text, "Q1 2025")
		assert.Contains(t, text, "pending")
	})

	t.Run("limited", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, WriteDistributions(&out, "$", dists, 1))
		assert.Contains(t, out.String(), "dist-2")
		assert.NotContains(t, out.String(), "dist-1")
	})

	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, WriteDistributions(&out, "$", nil, 5))
		assert.Contains(t, out.String(), "No profit distributions yet.")
	})
}

func TestWriteFindings(t *testing.T) {
	t.Run("errors before warnings", func(t *testing.T) {
		report := payload.Report{Findings: []payload.Finding{
			{Severity: payload.SeverityWarning, Path: "transactions[0]", Message: "allocations sum to 990 but total is 1000"},
			{Severity: payload.SeverityError, Path: "accounts[1]", Message: "missing id"},
		}}

		var out bytes.Buffer
		require.NoError(t, WriteFindings(&out, report))
		text := out.String()

		errAt := bytes.Index(out.Bytes(), []byte("accounts[1]: missing id"))
		warnAt := bytes.Index(out.Bytes(), []byte("transactions[0]: allocations sum"))
		require.GreaterOrEqual(t, errAt, 0)
		require.GreaterOrEqual(t, warnAt, 0)
		assert.Less(t, errAt, warnAt)
		assert.Contains(t, text, ErrorIcon)
		assert.Contains(t, text, WarningIcon)
	})

	t.Run("clean report", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, WriteFindings(&out, payload.Report{}))
		assert.Contains(t, out.String(), "No problems found")
	})
}

func TestRenderImportResult(t *testing.T) {
	text := RenderImportResult(importer.Result{
		Accounts:        5,
		Transactions:    12,
		Allocations:     48,
		Distributions:   2,
		CurrencyUpdated: true,
	})

	assert.Contains(t, text, "Import Complete")
	assert.Contains(t, text, "Accounts: 5")
	assert.Contains(t, text, "Transactions: 12 (48 allocations)")
	assert.Contains(t, text, "Profit distributions: 2")
	assert.Contains(t, text, "Currency symbol updated")
}

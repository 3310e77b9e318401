package spreadsheet

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
)

func sheetAccounts() []model.Account {
	return []model.Account{
		{ID: "inc", Name: "Real Revenue", Type: model.AccountTypeIncome, Balance: decimal.Zero},
		{ID: "pro", Name: "Company Profit", Type: model.AccountTypeProfit, TargetPercentage: 40, Balance: decimal.Zero},
		{ID: "own", Name: "Owner's Comp", Type: model.AccountTypeOwnersComp, TargetPercentage: 20, Balance: decimal.Zero},
		{ID: "tax", Name: "Tax/Zakat", Type: model.AccountTypeTax, TargetPercentage: 10, Balance: decimal.Zero},
		{ID: "opx", Name: "Operating Expense", Type: model.AccountTypeOpex, TargetPercentage: 30, Balance: decimal.Zero},
	}
}

func TestParseRows_RevenueRow(t *testing.T) {
	rows := [][]string{
		{"15-Mar-24", "1,000", "400", "", "200", "", "100", "", "300"},
	}

	p := ParseRows(rows, sheetAccounts(), "USD")
	require.Len(t, p.Transactions, 1)

	tx := p.Transactions[0]
	assert.Equal(t, "2024-03-15T00:00:00.000Z", tx.Date)
	assert.True(t, decimal.NewFromInt(1000).Equal(tx.TotalAmount))
	assert.Equal(t, "Mar 2024 Revenue", tx.Description)
	require.Len(t, tx.Allocations, 4)
	assert.Equal(t, "pro", tx.Allocations[0].AccountID)
	assert.True(t, decimal.NewFromInt(400).Equal(tx.Allocations[0].Amount))
	assert.Equal(t, "opx", tx.Allocations[3].AccountID)
	assert.True(t, decimal.NewFromInt(300).Equal(tx.Allocations[3].Amount))

	assert.Len(t, p.Accounts, 5)
	assert.Empty(t, p.BankAccounts)
	assert.Equal(t, "USD", p.CurrencySymbol)
}

func TestParseRows_DateFormats(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"1-Jan-2025", "2025-01-01T00:00:00.000Z", true},
		{"09-dec-23", "2023-12-09T00:00:00.000Z", true},
		{"15-Foo-24", "", false},
		{"31-Feb-24", "", false},
		{"March 15", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p := ParseRows([][]string{{tt.label, "100"}}, sheetAccounts(), "USD")
			if !tt.ok {
				assert.Empty(t, p.Transactions)
				return
			}
			require.Len(t, p.Transactions, 1)
			assert.Equal(t, tt.want, p.Transactions[0].Date)
		})
	}
}

func TestParseRows_SkipsNoiseAndNonPositive(t *testing.T) {
	rows := [][]string{
		{"Profit First Tracker 2024"},
		{"Term", "Revenue", "Profit"},
		{"Q1"},
		{},
		{"", "", ""},
		{"15-Mar-24", "0", "0"},
		{"16-Mar-24", "-50"},
		{"17-Mar-24", "abc"},
		{"18-Mar-24", ""},
		{"Quarterly review", "100"},
	}

	p := ParseRows(rows, sheetAccounts(), "USD")
	assert.Empty(t, p.Transactions)
	assert.Empty(t, p.ProfitDistributions)
}

func TestParseRows_QuarterTokenIsWholeWord(t *testing.T) {
	assert.False(t, isNoise("Quarterly"))
	assert.True(t, isNoise("Q"))
	assert.True(t, isNoise("Q2 2025"))
	assert.True(t, isNoise("Totals Q4"))
	assert.True(t, isNoise("Profit First"))
	assert.False(t, isNoise("15-Mar-24"))
}

func TestParseRows_DistributionBackComputation(t *testing.T) {
	rows := [][]string{
		{"Q2 2025"},
		{"Distribution", "500"},
	}

	p := ParseRows(rows, sheetAccounts(), "USD")
	require.Len(t, p.ProfitDistributions, 1)

	d := p.ProfitDistributions[0]
	assert.Equal(t, "Q2 2025", d.Quarter)
	assert.Equal(t, "2025-06-30T00:00:00.000Z", d.Date)
	assert.True(t, decimal.NewFromInt(1000).Equal(d.TotalProfit))
	assert.True(t, decimal.NewFromInt(500).Equal(d.DistributionAmount))
	assert.True(t, decimal.NewFromInt(250).Equal(d.ToOwners))
	assert.True(t, decimal.NewFromInt(250).Equal(d.ToCompany))
	assert.True(t, d.IsCompleted)
	assert.Equal(t, "Q2 2025 Distribution", d.Notes)
}

func TestParseRows_DistributionNeedsQuarterAndYear(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{"no year", [][]string{{"Q2"}, {"Distribution", "500"}}},
		{"no quarter", [][]string{{"15-Mar-24", "0"}, {"Distribution", "500"}}},
		{"zero amount", [][]string{{"Q2 2025"}, {"Distribution", "0"}}},
		{"first row", [][]string{{"Distribution", "500"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseRows(tt.rows, sheetAccounts(), "USD")
			assert.Empty(t, p.ProfitDistributions)
		})
	}
}

func TestParseRows_DeterministicIDs(t *testing.T) {
	rows := [][]string{
		{"15-Mar-24", "1000", "400"},
		{"Q1 2024"},
		{"Distribution", "200"},
	}

	first := ParseRows(rows, sheetAccounts(), "USD")
	second := ParseRows(rows, sheetAccounts(), "USD")
	require.Len(t, first.Transactions, 1)
	require.Len(t, first.ProfitDistributions, 1)
	assert.Equal(t, first.Transactions[0].ID, second.Transactions[0].ID)
	assert.Equal(t, first.ProfitDistributions[0].ID, second.ProfitDistributions[0].ID)
	assert.NotEqual(t, first.Transactions[0].ID, first.ProfitDistributions[0].ID)
}

func TestParseRows_MissingAccountTypesDropAllocations(t *testing.T) {
	accounts := []model.Account{{ID: "pro", Type: model.AccountTypeProfit}}
	p := ParseRows([][]string{{"15-Mar-24", "1000", "400", "", "200"}}, accounts, "USD")

	require.Len(t, p.Transactions, 1)
	require.Len(t, p.Transactions[0].Allocations, 1)
	assert.Equal(t, "pro", p.Transactions[0].Allocations[0].AccountID)
}

func TestParseRows_OutputValidates(t *testing.T) {
	rows := [][]string{
		{"Profit First 2024"},
		{"15-Mar-24", "1,000", "400", "", "200", "", "100", "", "300"},
		{"Q1 2024"},
		{"Distribution", "150"},
	}

	p := ParseRows(rows, sheetAccounts(), "USD")
	raw, err := p.Raw()
	require.NoError(t, err)
	report := payload.Validate(raw)
	assert.Empty(t, report.Findings)
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffProfit First,,\n15-Mar-24,\"1,000\",400\n\n\"Q1 2024\"\nDistribution,150\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Profit First", rows[0][0])
	assert.Equal(t, []string{"15-Mar-24", "1,000", "400"}, rows[1])
	assert.Equal(t, []string{"Distribution", "150"}, rows[3])

	p := ParseRows(rows, sheetAccounts(), "USD")
	require.Len(t, p.Transactions, 1)
	require.Len(t, p.ProfitDistributions, 1)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC).Format(payload.TimeLayout), p.ProfitDistributions[0].Date)
}

func TestParseRows_RepeatedRowsGetDistinctIDs(t *testing.T) {
	rows := [][]string{
		{"15-Mar-24", "1000", "400", "", "200", "", "100", "", "300"},
		{"15-Mar-24", "1000", "400", "", "200", "", "100", "", "300"},
		{"Q1 2024"},
		{"Distribution", "200"},
		{"Q1 2024"},
		{"Distribution", "200"},
	}

	first := ParseRows(rows, sheetAccounts(), "USD")
	second := ParseRows(rows, sheetAccounts(), "USD")
	require.Len(t, first.Transactions, 2)
	require.Len(t, first.ProfitDistributions, 2)
	assert.NotEqual(t, first.Transactions[0].ID, first.Transactions[1].ID)
	assert.NotEqual(t, first.ProfitDistributions[0].ID, first.ProfitDistributions[1].ID)

	for i := range first.Transactions {
		assert.Equal(t, first.Transactions[i].ID, second.Transactions[i].ID)
	}
	for i := range first.ProfitDistributions {
		assert.Equal(t, first.ProfitDistributions[i].ID, second.ProfitDistributions[i].ID)
	}

	// The first occurrence keeps the id a single row would get
	single := ParseRows(rows[:1], sheetAccounts(), "USD")
	assert.Equal(t, single.Transactions[0].ID, first.Transactions[0].ID)

	raw, err := first.Raw()
	require.NoError(t, err)
	assert.False(t, payload.Validate(raw).HasErrors())
}

func TestParseRows_HugeNumbersReadAsZero(t *testing.T) {
	rows := [][]string{
		{"15-Mar-24", "1e200000000"},
		{"16-Mar-24", "1000", "1e-200000000", "", "200", "", "100", "", "300"},
	}

	p := ParseRows(rows, sheetAccounts(), "USD")
	require.Len(t, p.Transactions, 1)
	assert.Equal(t, "2024-03-16T00:00:00.000Z", p.Transactions[0].Date)
	assert.True(t, p.Transactions[0].Allocations[0].Amount.IsZero())

	assert.True(t, amount("1e200000000").IsZero())
	assert.True(t, amount("1,234.50").Equal(decimal.RequireFromString("1234.5")))
}

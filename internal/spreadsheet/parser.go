// Package spreadsheet turns Profit First tracking-sheet rows into an import payload.
package spreadsheet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
)

// Column positions on a revenue row, 0-based.
const (
	colLabel      = 0
	colRevenue    = 1
	colProfit     = 2
	colOwnersComp = 4
	colTax        = 6
	colOpex       = 8
)

var (
	datePattern     = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{4}|\d{2})$`)
	quarterToken    = regexp.MustCompile(`^Q\d*$`)
	noiseSubstrings = []string{"Profit First", "Term"}

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}

	allocationColumns = []struct {
		accountType model.AccountType
		column      int
	}{
		{model.AccountTypeProfit, colProfit},
		{model.AccountTypeOwnersComp, colOwnersComp},
		{model.AccountTypeTax, colTax},
		{model.AccountTypeOpex, colOpex},
	}
)

// ReadCSV reads every record of a CSV export. Rows may have differing
// lengths and stray quotes.
func ReadCSV(r io.Reader) ([][]string, error) {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true
	csvr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// ParseRows converts spreadsheet rows into a payload. The given accounts are
// passed through unchanged; allocations are bound to the first account of
// each type. Rows that do not describe revenue or a distribution are ignored.
func ParseRows(rows [][]string, accounts []model.Account, currencySymbol string) payload.Payload {
	p := payload.Payload{
		CurrencySymbol: currencySymbol,
		Accounts:       make([]payload.Account, len(accounts)),
		Transactions:   []payload.Transaction{},
		BankAccounts:   []payload.BankAccount{},
	}
	for i, acc := range accounts {
		p.Accounts[i] = payload.AccountFrom(acc)
	}

	typeIndex := model.TypeIndex(accounts)
	ids := rowIDs{}
	rows = nonEmptyRows(rows)

	for i, row := range rows {
		label := strings.TrimSpace(row[colLabel])
		if isNoise(label) {
			continue
		}

		if m := datePattern.FindStringSubmatch(label); m != nil && cell(row, colRevenue) != "" {
			if tx, ok := parseRevenueRow(m, row, typeIndex, ids); ok {
				p.Transactions = append(p.Transactions, payload.TransactionFrom(tx))
			}
			continue
		}

		if strings.Contains(label, "Distribution") && i > 0 {
			if dist, ok := parseDistributionRow(strings.TrimSpace(rows[i-1][colLabel]), row, ids); ok {
				p.ProfitDistributions = append(p.ProfitDistributions, payload.DistributionFrom(dist))
			}
		}
	}

	return p
}

func parseRevenueRow(m []string, row []string, typeIndex map[model.AccountType]string, ids rowIDs) (model.Transaction, bool) {
	revenue := amount(cell(row, colRevenue))
	if !revenue.IsPositive() {
		return model.Transaction{}, false
	}

	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return model.Transaction{}, false
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31-Feb into March; such rows are not real dates
	if date.Day() != day || date.Month() != month {
		return model.Transaction{}, false
	}

	var allocations []model.Allocation
	for _, col := range allocationColumns {
		accountID, ok := typeIndex[col.accountType]
		if !ok {
			continue
		}
		allocations = append(allocations, model.Allocation{
			AccountID: accountID,
			Amount:    amount(cell(row, col.column)),
		})
	}

	isoDate := payload.FormatTime(date)
	return model.Transaction{
		ID:          ids.next("tx:" + isoDate + ":" + revenue.String()),
		Date:        date,
		Description: fmt.Sprintf("%s %d Revenue", month.String()[:3], year),
		TotalAmount: revenue,
		Allocations: allocations,
	}, true
}

func parseDistributionRow(quarterLabel string, row []string, ids rowIDs) (model.ProfitDistribution, bool) {
	distAmount := amount(cell(row, colRevenue))
	if !distAmount.IsPositive() {
		return model.ProfitDistribution{}, false
	}

	q, year, ok := model.ParseQuarterLabel(quarterLabel)
	if !ok {
		return model.ProfitDistribution{}, false
	}

	id := ids.next(fmt.Sprintf("dist:%d-q%d", year, q))
	dist, err := model.DistributionFromAmount(id, q, year, distAmount)
	if err != nil {
		return model.ProfitDistribution{}, false
	}
	return dist, true
}

// isNoise reports heading rows: titles, term rows and quarter headings.
func isNoise(label string) bool {
	if label == "" {
		return true
	}
	for _, s := range noiseSubstrings {
		if strings.Contains(label, s) {
			return true
		}
	}
	for _, tok := range strings.Fields(label) {
		if quarterToken.MatchString(tok) {
			return true
		}
	}
	return false
}

func nonEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// amount parses a spreadsheet number, dropping thousands separators.
// Anything unreadable or outside model.AmountInRange is zero.
func amount(s string) decimal.Decimal {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !model.AmountInRange(d) {
		return decimal.Zero
	}
	return d
}

// rowIDs numbers repeats of the same key, so identical rows in one sheet
// become distinct records whose ids are still stable across re-imports.
type rowIDs map[string]int

func (r rowIDs) next(key string) string {
	n := r[key]
	r[key] = n + 1
	if n > 0 {
		key = fmt.Sprintf("%s#%d", key, n)
	}
	return deterministicID(key)
}

// deterministicID derives a stable UUID so re-importing the same sheet
// produces the same ids.
func deterministicID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

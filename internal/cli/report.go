package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/profitfirst/internal/importer"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
)

// FormatMoney renders amount with two decimals behind the currency symbol.
// Alphabetic symbols such as "USD" are separated by a space.
func FormatMoney(symbol string, amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	sep := ""
	if r := []rune(symbol); len(r) > 0 && unicode.IsLetter(r[len(r)-1]) {
		sep = " "
	}
	return sign + symbol + sep + amount.StringFixed(2)
}

// FormatPercent renders a percentage with up to two decimals.
func FormatPercent(pct float64) string {
	return decimal.NewFromFloat(pct).Round(2).String() + "%"
}

// WriteBuckets prints one row per account with its balance, target (TAPS)
// and current share (CAPS), followed by the total.
func WriteBuckets(w io.Writer, s ledger.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"ACCOUNT", "TYPE", "BALANCE", "TARGET", "CURRENT"}
	for i, h := range header {
		header[i] = TableHeaderStyle.Render(h)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, acc := range s.Accounts {
		balance := FormatMoney(s.CurrencySymbol, acc.Balance)
		if acc.Balance.IsNegative() {
			balance = NegativeStyle.Render(balance)
		}
		target, current := "-", "-"
		if acc.Type != model.AccountTypeIncome {
			target = FormatPercent(acc.TargetPercentage)
			current = FormatPercent(acc.CurrentPercentage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			BoldStyle.Render(acc.Name), SubtleStyle.Render(string(acc.Type)), balance, target, current)
	}
	fmt.Fprintf(tw, "%s\t\t%s\t%s\t\n",
		BoldStyle.Render("Total"),
		FormatMoney(s.CurrencySymbol, s.TotalBalance()),
		FormatPercent(model.TargetSum(s.Accounts)))

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}

	if len(s.Accounts) > 0 {
		if sum := model.TargetSum(s.Accounts); sum != 100 {
			_, err := fmt.Fprintln(w, FormatWarning(fmt.Sprintf("Target percentages add up to %s, not 100%%", FormatPercent(sum))))
			return err
		}
	}
	return nil
}

// WriteDistributions prints up to limit distributions, newest first as held
// in state. A limit of zero prints all of them.
func WriteDistributions(w io.Writer, symbol string, distributions []model.ProfitDistribution, limit int) error {
	if len(distributions) == 0 {
		_, err := fmt.Fprintln(w, SubtitleStyle.Render("No profit distributions yet."))
		return err
	}
	if limit > 0 && len(distributions) > limit {
		distributions = distributions[:limit]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"QUARTER", "DATE", "DISTRIBUTED", "OWNERS", "COMPANY", "STATUS", "ID"}
	for i, h := range header {
		header[i] = TableHeaderStyle.Render(h)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, d := range distributions {
		status := WarningStyle.Render("pending")
		if d.IsCompleted {
			status = SuccessStyle.Render("completed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			BoldStyle.Render(d.Quarter),
			d.Date.Format("2006-01-02"),
			FormatMoney(symbol, d.DistributionAmount),
			FormatMoney(symbol, d.ToOwners),
			FormatMoney(symbol, d.ToCompany),
			status,
			SubtleStyle.Render(d.ID))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write distributions: %w", err)
	}
	return nil
}

// WriteFindings prints errors before warnings, one per line.
func WriteFindings(w io.Writer, report payload.Report) error {
	var b strings.Builder
	for _, f := range report.Errors() {
		b.WriteString(FormatError(findingText(f)) + "\n")
	}
	for _, f := range report.Warnings() {
		b.WriteString(FormatWarning(findingText(f)) + "\n")
	}
	if b.Len() == 0 {
		b.WriteString(FormatSuccess("No problems found") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func findingText(f payload.Finding) string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// RenderImportResult summarizes a committed import in a box.
func RenderImportResult(r importer.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  • Bank accounts: %d\n", r.BankAccounts)
	fmt.Fprintf(&b, "  • Accounts: %d\n", r.Accounts)
	fmt.Fprintf(&b, "  • Transactions: %d (%d allocations)\n", r.Transactions, r.Allocations)
	fmt.Fprintf(&b, "  • Profit distributions: %d", r.Distributions)
	if r.CurrencyUpdated {
		b.WriteString("\n  • Currency symbol updated")
	}
	return RenderBox(ChartIcon+" Import Complete", b.String())
}

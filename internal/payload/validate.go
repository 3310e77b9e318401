package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/model"
)

// Severity classifies a finding.
type Severity string

// Finding severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single validation result.
type Finding struct {
	Severity Severity
	Path     string
	Message  string
}

func (f Finding) String() string {
	if f.Path == "" {
		return fmt.Sprintf("%s: %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Path, f.Message)
}

// Report collects the findings of one validation pass.
type Report struct {
	Findings []Finding
}

// HasErrors reports whether any finding blocks a commit.
func (r Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error findings.
func (r Report) Errors() []Finding {
	return r.filter(SeverityError)
}

// Warnings returns the warning findings.
func (r Report) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

// Err returns nil when the report has no errors, and otherwise an error
// wrapping common.ErrValidationFailed that lists them.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, f := range errs {
		msgs[i] = f.String()
	}
	return fmt.Errorf("%w: %s", common.ErrValidationFailed, strings.Join(msgs, "; "))
}

// Merge appends other's findings.
func (r *Report) Merge(other Report) {
	r.Findings = append(r.Findings, other.Findings...)
}

func (r Report) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) errorf(path, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(path, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a candidate payload decoded into an untyped tree. It never
// mutates raw. Structural problems produce exactly one error and stop.
func Validate(raw any) Report {
	var r Report

	root, ok := raw.(map[string]any)
	if !ok {
		r.errorf("", "invalid data format: payload must be a JSON object")
		return r
	}

	accounts, ok := requiredArray(root, "accounts")
	if !ok {
		r.errorf("accounts", "invalid data format: accounts array is required")
		return r
	}
	transactions, ok := requiredArray(root, "transactions")
	if !ok {
		r.errorf("transactions", "invalid data format: transactions array is required")
		return r
	}
	bankAccounts, ok := optionalArray(root, "bankAccounts")
	if !ok {
		r.errorf("bankAccounts", "invalid data format: bankAccounts must be an array")
		return r
	}
	distributions, ok := optionalArray(root, "profitDistributions")
	if !ok {
		r.errorf("profitDistributions", "invalid data format: profitDistributions must be an array")
		return r
	}

	bankIDs := make(map[string]bool, len(bankAccounts))
	for i, item := range bankAccounts {
		path := fmt.Sprintf("bankAccounts[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			r.errorf(path, "bank account must be an object")
			continue
		}
		id, ok := nonEmptyString(obj["id"])
		if !ok {
			r.errorf(path, "bank account is missing id")
			continue
		}
		bankIDs[id] = true
	}

	accountIDs := make(map[string]bool, len(accounts))
	for i, item := range accounts {
		validateAccount(&r, fmt.Sprintf("accounts[%d]", i), item, accountIDs, bankIDs)
	}

	transactionIDs := make(map[string]string, len(transactions))
	for i, item := range transactions {
		validateTransaction(&r, fmt.Sprintf("transactions[%d]", i), item, accountIDs, transactionIDs)
	}

	distributionIDs := make(map[string]string, len(distributions))
	for i, item := range distributions {
		path := fmt.Sprintf("profitDistributions[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			r.errorf(path, "profit distribution must be an object")
			continue
		}
		if id, ok := nonEmptyString(obj["id"]); !ok {
			r.errorf(path, "profit distribution is missing id")
		} else {
			checkUnique(&r, path, "profit distribution", id, distributionIDs)
		}
		for _, field := range []string{"totalProfit", "distributionAmount", "toOwners", "toCompany"} {
			if v, present := obj[field]; present {
				checkRange(&r, path, field, v)
			}
		}
	}

	return r
}

func validateAccount(r *Report, path string, item any, accountIDs, bankIDs map[string]bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		r.errorf(path, "account must be an object")
		return
	}

	if id, ok := nonEmptyString(obj["id"]); ok {
		accountIDs[id] = true
	} else {
		r.errorf(path, "account is missing id")
	}

	if typ, ok := nonEmptyString(obj["type"]); !ok {
		r.errorf(path, "account is missing type")
	} else if !model.AccountType(typ).Valid() {
		r.errorf(path, "unknown account type %q", typ)
	}

	if v, present := obj["targetPercentage"]; present {
		pct, ok := number(v)
		switch {
		case !ok:
			r.errorf(path, "targetPercentage must be a number")
		case !model.AmountInRange(pct):
			r.errorf(path, "targetPercentage %v is out of range", v)
		case pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)):
			r.errorf(path, "targetPercentage %s is outside 0-100", pct.String())
		}
	}

	if v, present := obj["balance"]; present {
		checkRange(r, path, "balance", v)
	}

	if link, ok := nonEmptyString(obj["bankAccountId"]); ok && !bankIDs[link] {
		r.warnf(path, "bankAccountId %q matches no bank account in the payload", link)
	}
}

func validateTransaction(r *Report, path string, item any, accountIDs map[string]bool, seen map[string]string) {
	obj, ok := item.(map[string]any)
	if !ok {
		r.errorf(path, "transaction must be an object")
		return
	}

	if id, ok := nonEmptyString(obj["id"]); !ok {
		r.errorf(path, "transaction is missing id")
	} else {
		checkUnique(r, path, "transaction", id, seen)
	}

	if date, ok := nonEmptyString(obj["date"]); !ok {
		r.errorf(path, "transaction is missing date")
	} else if _, err := ParseTime(date); err != nil {
		r.errorf(path, "transaction date %q is not an ISO-8601 timestamp", date)
	}

	total, totalOK := number(obj["totalAmount"])
	if !totalOK {
		r.errorf(path, "transaction totalAmount must be a number")
	} else if !model.AmountInRange(total) {
		r.errorf(path, "transaction totalAmount %v is out of range", obj["totalAmount"])
		totalOK = false
	}

	// A missing or null allocations key is an empty split, so the total
	// still has to balance against zero.
	var allocations []any
	if rawAllocations := obj["allocations"]; rawAllocations != nil {
		allocations, ok = rawAllocations.([]any)
		if !ok {
			r.errorf(path, "allocations must be an array")
			return
		}
	}

	sum := decimal.Zero
	sumOK := true
	for i, a := range allocations {
		apath := fmt.Sprintf("%s.allocations[%d]", path, i)
		alloc, ok := a.(map[string]any)
		if !ok {
			r.errorf(apath, "allocation must be an object")
			sumOK = false
			continue
		}

		accountID, _ := alloc["accountId"].(string)
		if !accountIDs[accountID] {
			r.errorf(apath, "allocation references unknown account %q", accountID)
		}

		amount, ok := number(alloc["amount"])
		if !ok {
			r.errorf(apath, "allocation amount must be a number")
			sumOK = false
			continue
		}
		if !model.AmountInRange(amount) {
			r.errorf(apath, "allocation amount %v is out of range", alloc["amount"])
			sumOK = false
			continue
		}
		sum = sum.Add(amount)
	}

	if totalOK && sumOK && sum.Sub(total).Abs().GreaterThan(model.AllocationTolerance) {
		r.warnf(path, "allocations sum to %s but totalAmount is %s", sum.String(), total.String())
	}
}

// checkUnique reports id when an earlier element at seen[id] already used it.
func checkUnique(r *Report, path, kind, id string, seen map[string]string) {
	if first, dup := seen[id]; dup {
		r.errorf(path, "%s id %q repeats %s", kind, id, first)
		return
	}
	seen[id] = path
}

// checkRange reports numeric values outside model.AmountInRange. Values that
// are not numbers are left to the decoder.
func checkRange(r *Report, path, field string, v any) {
	if d, ok := number(v); ok && !model.AmountInRange(d) {
		r.errorf(path, "%s %v is out of range", field, v)
	}
}

func requiredArray(root map[string]any, key string) ([]any, bool) {
	arr, ok := root[key].([]any)
	return arr, ok
}

// optionalArray treats a missing or null key as an empty array.
func optionalArray(root map[string]any, key string) ([]any, bool) {
	v, present := root[key]
	if !present || v == nil {
		return nil, true
	}
	arr, ok := v.([]any)
	return arr, ok
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// number accepts json.Number and float64 so callers may decode with or
// without UseNumber.
func number(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	}
	return decimal.Zero, false
}

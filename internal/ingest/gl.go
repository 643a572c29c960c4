// Package ingest parses ledger and forecast CSV exports into records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/period"
	"github.com/jask/glrecon/internal/textnorm"
)

// GL export column positions. The export has no header row.
const (
	colAccountCode = iota
	colAccountName
	colAuxCode
	colAuxName
	colTaxCode
	colTaxName
	colTransactionDate
	colVoucherNo
	colCounterAccountCode
	colCounterAccountName
	colCounterAuxCode
	colCounterAuxName
	colCounterTaxCode
	colCounterTaxName
	colDescription
	colNumber1
	colNumber2
	colDebitAmount
	colDebitTax
	colCreditAmount
	colCreditTax
	colBalance

	glColumnCount
)

// DefaultTargetAccounts are the revenue and cost accounts reconciled against forecasts.
var DefaultTargetAccounts = []string{"511", "512", "513", "514", "541", "515", "727", "737", "740", "745"}

// AccountSet is an allow-list of account codes.
type AccountSet map[string]struct{}

func NewAccountSet(codes []string) AccountSet {
	s := make(AccountSet, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

func (s AccountSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// RowError is a per-row problem. Row is 1-based.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// GLResult is the outcome of parsing a GL export.
type GLResult struct {
	TotalRows    int
	ImportedRows int
	SkippedRows  int
	Errors       []RowError
	Entries      []repository.GLEntry
}

// Periods returns the distinct periods of the accepted entries in first-seen order.
func (r GLResult) Periods() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range r.Entries {
		if !seen[e.Period] {
			seen[e.Period] = true
			out = append(out, e.Period)
		}
	}
	return out
}

// ParseGL parses a decoded GL export. Rows for accounts outside targets and
// rows with neither a debit nor a credit amount are skipped; malformed rows
// are reported in Errors and parsing continues.
func ParseGL(text string, targets AccountSet) GLResult {
	var res GLResult
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	row := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		res.TotalRows++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: apperr.Validation("%v", err)})
			continue
		}
		entry, skip, err := parseGLRow(rec, targets)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
		case skip:
			res.SkippedRows++
		default:
			entry.RowNumber = row
			res.Entries = append(res.Entries, entry)
		}
	}
	res.ImportedRows = len(res.Entries)
	return res
}

func parseGLRow(rec []string, targets AccountSet) (repository.GLEntry, bool, error) {
	field := func(i int) string { return strings.TrimSpace(rec[i]) }

	// Footer and summary lines carry no target account; they are skipped
	// whatever their width.
	code := field(colAccountCode)
	if !targets.Contains(code) {
		return repository.GLEntry{}, true, nil
	}
	if len(rec) != glColumnCount {
		return repository.GLEntry{}, false, apperr.Validation("expected %d columns, got %d", glColumnCount, len(rec))
	}
	debit, err := ParseAmount(field(colDebitAmount))
	if err != nil {
		return repository.GLEntry{}, false, apperr.Validation("debit amount: %v", err)
	}
	credit, err := ParseAmount(field(colCreditAmount))
	if err != nil {
		return repository.GLEntry{}, false, apperr.Validation("credit amount: %v", err)
	}
	if debit.IsZero() && credit.IsZero() {
		return repository.GLEntry{}, true, nil
	}
	amount, side := debit.Abs(), repository.Debit
	if debit.IsZero() {
		amount, side = credit.Abs(), repository.Credit
	}
	date, err := ParseTransactionDate(field(colTransactionDate))
	if err != nil {
		return repository.GLEntry{}, false, err
	}
	return repository.GLEntry{
		ID:                 uuid.NewString(),
		VoucherNo:          field(colVoucherNo),
		TransactionDate:    date,
		AccountCode:        code,
		AccountName:        textnorm.Display(field(colAccountName)),
		SubAccountCode:     field(colAuxCode),
		SubAccountName:     textnorm.Display(field(colAuxName)),
		CounterAccountCode: field(colCounterAccountCode),
		CounterAccountName: textnorm.Display(field(colCounterAccountName)),
		Amount:             amount,
		DebitCredit:        side,
		Description:        field(colDescription),
		Period:             period.OfDate(date),
		Status:             repository.StatusUnmatched,
	}, false, nil
}

// ParseTransactionDate accepts YYYYMMDD or YYYY/MM/DD and returns YYYY-MM-DD.
func ParseTransactionDate(s string) (string, error) {
	var layout string
	switch {
	case len(s) == 8 && isDigits(s):
		layout = "20060102"
	case strings.Count(s, "/") == 2:
		layout = "2006/1/2"
	default:
		return "", apperr.Validation("transaction date %q is neither YYYYMMDD nor YYYY/MM/DD", s)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", apperr.Validation("transaction date %q: %v", s, err)
	}
	return t.Format(time.DateOnly), nil
}

// ParseAmount parses a decimal amount, allowing thousands separators, a
// currency sign and surrounding space. Empty input is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(",", "", "，", "", "¥", "", "￥", "", " ", "", "　", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

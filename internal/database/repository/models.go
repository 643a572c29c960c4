package repository

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the reconciliation state of a forecast or GL entry.
type Status string

const (
	StatusUnmatched Status = "unmatched"
	StatusMatched   Status = "matched"
	StatusFuzzy     Status = "fuzzy" // reserved for a looser matching mode
	StatusExcluded  Status = "excluded"
)

// Side is the ledger side an amount was booked on.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// Project represents a project row. Customer fields are copied onto forecasts.
type Project struct {
	ID           string
	Code         string
	Name         string
	CustomerCode string
	CustomerName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderForecast represents an order_forecasts row.
type OrderForecast struct {
	ID               string
	ProjectID        sql.Null[string]
	ProjectCode      string
	ProjectName      string
	CustomerCode     string
	CustomerName     string
	AccountingPeriod string // YYYY-MM
	AccountingItem   string
	Description      string
	Amount           decimal.Decimal
	Status           Status
	GLMatchID        sql.Null[string]
	IsExcluded       bool
	ExclusionReason  sql.Null[string]
	Period           string // partition key, always AccountingPeriod
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Open reports whether the forecast can take part in a matching pass.
func (f OrderForecast) Open() bool {
	return f.Status == StatusUnmatched && !f.IsExcluded && !f.GLMatchID.Valid
}

// GLEntry represents a gl_entries row.
type GLEntry struct {
	ID                 string
	VoucherNo          string
	TransactionDate    string // YYYY-MM-DD
	AccountCode        string
	AccountName        string
	SubAccountCode     string
	SubAccountName     string
	CounterAccountCode string
	CounterAccountName string
	Amount             decimal.Decimal // unsigned
	DebitCredit        Side
	Description        string
	Period             string // YYYY-MM of TransactionDate
	Status             Status
	OrderMatchID       sql.Null[string]
	IsExcluded         bool
	ExclusionReason    sql.Null[string]
	RowNumber          int // 1-based row in the source file
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Open reports whether the entry is still available to the matching pool.
func (g GLEntry) Open() bool {
	return g.Status == StatusUnmatched && !g.IsExcluded && !g.OrderMatchID.Valid
}

// ReconciliationLog is the immutable summary of one reconciliation run.
type ReconciliationLog struct {
	ID                  string
	Period              string
	ExecutedAt          time.Time
	MatchedCount        int
	FuzzyMatchedCount   int
	UnmatchedOrderCount int
	UnmatchedGLCount    int
	TotalOrderCount     int
	TotalGLCount        int
}

// Some wraps v as a present nullable value.
func Some[T any](v T) sql.Null[T] { return sql.Null[T]{V: v, Valid: true} }

// None is an absent nullable value.
func None[T any]() sql.Null[T] { return sql.Null[T]{} }

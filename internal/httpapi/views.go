package httpapi

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/ingest"
	"github.com/jask/glrecon/internal/service"
)

type forecastView struct {
	ID                   string          `json:"id"`
	ProjectID            *string         `json:"projectId"`
	ProjectCode          string          `json:"projectCode"`
	ProjectName          string          `json:"projectName"`
	CustomerCode         string          `json:"customerCode"`
	CustomerName         string          `json:"customerName"`
	AccountingPeriod     string          `json:"accountingPeriod"`
	AccountingItem       string          `json:"accountingItem"`
	Description          string          `json:"description"`
	Amount               decimal.Decimal `json:"amount"`
	ReconciliationStatus string          `json:"reconciliationStatus"`
	GLMatchID            *string         `json:"glMatchId"`
	IsExcluded           bool            `json:"isExcluded"`
	ExclusionReason      *string         `json:"exclusionReason"`
	Period               string          `json:"period"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func toForecastView(f repository.OrderForecast) forecastView {
	return forecastView{
		ID:                   f.ID,
		ProjectID:            ptr(f.ProjectID),
		ProjectCode:          f.ProjectCode,
		ProjectName:          f.ProjectName,
		CustomerCode:         f.CustomerCode,
		CustomerName:         f.CustomerName,
		AccountingPeriod:     f.AccountingPeriod,
		AccountingItem:       f.AccountingItem,
		Description:          f.Description,
		Amount:               f.Amount,
		ReconciliationStatus: string(f.Status),
		GLMatchID:            ptr(f.GLMatchID),
		IsExcluded:           f.IsExcluded,
		ExclusionReason:      ptr(f.ExclusionReason),
		Period:               f.Period,
		Version:              f.Version,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

type glView struct {
	ID                   string          `json:"id"`
	VoucherNo            string          `json:"voucherNo"`
	TransactionDate      string          `json:"transactionDate"`
	AccountCode          string          `json:"accountCode"`
	AccountName          string          `json:"accountName"`
	CounterAccountCode   string          `json:"counterAccountCode"`
	CounterAccountName   string          `json:"counterAccountName"`
	Amount               decimal.Decimal `json:"amount"`
	DebitCredit          string          `json:"debitCredit"`
	Description          string          `json:"description"`
	Period               string          `json:"period"`
	ReconciliationStatus string          `json:"reconciliationStatus"`
	OrderMatchID         *string         `json:"orderMatchId"`
	IsExcluded           bool            `json:"isExcluded"`
	ExclusionReason      *string         `json:"exclusionReason"`
	RowNumber            int             `json:"rowNumber"`
}

func toGLView(g repository.GLEntry) glView {
	return glView{
		ID:                   g.ID,
		VoucherNo:            g.VoucherNo,
		TransactionDate:      g.TransactionDate,
		AccountCode:          g.AccountCode,
		AccountName:          g.AccountName,
		CounterAccountCode:   g.CounterAccountCode,
		CounterAccountName:   g.CounterAccountName,
		Amount:               g.Amount,
		DebitCredit:          string(g.DebitCredit),
		Description:          g.Description,
		Period:               g.Period,
		ReconciliationStatus: string(g.Status),
		OrderMatchID:         ptr(g.OrderMatchID),
		IsExcluded:           g.IsExcluded,
		ExclusionReason:      ptr(g.ExclusionReason),
		RowNumber:            g.RowNumber,
	}
}

type rowErrorView struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type importView struct {
	Encoding     string         `json:"encoding"`
	TotalRows    int            `json:"totalRows"`
	ImportedRows int            `json:"importedRows"`
	SkippedRows  int            `json:"skippedRows"`
	Errors       []rowErrorView `json:"errors"`
	Periods      []string       `json:"periods"`
}

func toImportView(res service.ImportResult) importView {
	v := importView{
		Encoding:     res.Encoding,
		TotalRows:    res.TotalRows,
		ImportedRows: res.ImportedRows,
		SkippedRows:  res.SkippedRows,
		Errors:       make([]rowErrorView, 0, len(res.Errors)),
		Periods:      res.Periods,
	}
	for _, e := range res.Errors {
		v.Errors = append(v.Errors, rowErrorView{Row: e.Row, Message: rowMessage(e)})
	}
	if v.Periods == nil {
		v.Periods = []string{}
	}
	return v
}

func rowMessage(e ingest.RowError) string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

type runView struct {
	LogID               string `json:"logId"`
	Period              string `json:"period"`
	MatchedCount        int    `json:"matchedCount"`
	UnmatchedOrderCount int    `json:"unmatchedOrderCount"`
	UnmatchedGLCount    int    `json:"unmatchedGlCount"`
	TotalOrderCount     int    `json:"totalOrderCount"`
	TotalGLCount        int    `json:"totalGlCount"`
	FailedPairs         int    `json:"failedPairs"`
}

func toRunView(s service.RunSummary) runView {
	return runView{
		LogID:               s.LogID,
		Period:              s.Period,
		MatchedCount:        s.MatchedCount,
		UnmatchedOrderCount: s.UnmatchedOrderCount,
		UnmatchedGLCount:    s.UnmatchedGLCount,
		TotalOrderCount:     s.TotalOrderCount,
		TotalGLCount:        s.TotalGLCount,
		FailedPairs:         s.FailedPairs,
	}
}

type logView struct {
	ID                  string    `json:"id"`
	Period              string    `json:"period"`
	ExecutedAt          time.Time `json:"executedAt"`
	MatchedCount        int       `json:"matchedCount"`
	FuzzyMatchedCount   int       `json:"fuzzyMatchedCount"`
	UnmatchedOrderCount int       `json:"unmatchedOrderCount"`
	UnmatchedGLCount    int       `json:"unmatchedGlCount"`
	TotalOrderCount     int       `json:"totalOrderCount"`
	TotalGLCount        int       `json:"totalGlCount"`
}

func toLogView(l repository.ReconciliationLog) logView {
	return logView{
		ID:                  l.ID,
		Period:              l.Period,
		ExecutedAt:          l.ExecutedAt,
		MatchedCount:        l.MatchedCount,
		FuzzyMatchedCount:   l.FuzzyMatchedCount,
		UnmatchedOrderCount: l.UnmatchedOrderCount,
		UnmatchedGLCount:    l.UnmatchedGLCount,
		TotalOrderCount:     l.TotalOrderCount,
		TotalGLCount:        l.TotalGLCount,
	}
}

type candidateView struct {
	Entry          glView  `json:"entry"`
	Similarity     float64 `json:"similarity"`
	AccountMatches bool    `json:"accountMatches"`
}

func ptr(n sql.Null[string]) *string {
	if !n.Valid {
		return nil
	}
	v := n.V
	return &v
}

package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/period"
)

const forecastColumnCount = 5

// ForecastRow is one validated line of a forecast bulk-load file.
type ForecastRow struct {
	Row              int
	ProjectCode      string `validate:"required,max=64"`
	AccountingItem   string `validate:"required,max=200"`
	AccountingPeriod string `validate:"required,period"`
	Description      string `validate:"max=500"`
	Amount           decimal.Decimal
}

// ForecastResult is the outcome of parsing a forecast file.
type ForecastResult struct {
	TotalRows    int
	ImportedRows int
	SkippedRows  int
	Errors       []RowError
	Rows         []ForecastRow
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		return period.Valid(fl.Field().String())
	})
	return v
}

// ParseForecasts parses projectCode, accountingItem, accountingPeriod,
// description, amount rows. A leading header row is recognised and ignored.
func ParseForecasts(text string) ForecastResult {
	var res ForecastResult
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	row := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			res.TotalRows++
			res.Errors = append(res.Errors, RowError{Row: row, Err: apperr.Validation("%v", err)})
			continue
		}
		if row == 1 && isForecastHeader(rec) {
			continue
		}
		res.TotalRows++
		if blank(rec) {
			res.SkippedRows++
			continue
		}
		fr, err := parseForecastRow(rec)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
			continue
		}
		fr.Row = row
		res.Rows = append(res.Rows, fr)
	}
	res.ImportedRows = len(res.Rows)
	return res
}

func parseForecastRow(rec []string) (ForecastRow, error) {
	if len(rec) < forecastColumnCount {
		return ForecastRow{}, apperr.Validation("expected %d columns, got %d", forecastColumnCount, len(rec))
	}
	fr := ForecastRow{
		ProjectCode:      strings.TrimSpace(rec[0]),
		AccountingItem:   strings.TrimSpace(rec[1]),
		AccountingPeriod: strings.TrimSpace(rec[2]),
		Description:      strings.TrimSpace(rec[3]),
	}
	if err := validate.Struct(fr); err != nil {
		return ForecastRow{}, validationError(err)
	}
	raw := strings.TrimSpace(rec[4])
	if raw == "" {
		return ForecastRow{}, apperr.Validation("amount is required")
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		return ForecastRow{}, apperr.Validation("%v", err)
	}
	fr.Amount = amount
	return fr, nil
}

// ValidateForecast checks a manually entered forecast with the same rules as
// the bulk loader.
func ValidateForecast(fr ForecastRow) error {
	if err := validate.Struct(fr); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", fe.Field())
	case "period":
		return apperr.Validation("%s %q must be YYYY-MM", fe.Field(), fe.Value())
	default:
		return apperr.Validation("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

func isForecastHeader(rec []string) bool {
	if len(rec) < 3 {
		return false
	}
	if period.Valid(strings.TrimSpace(rec[2])) {
		return false
	}
	if len(rec) >= forecastColumnCount {
		if _, err := ParseAmount(rec[4]); err == nil && strings.TrimSpace(rec[4]) != "" {
			return false
		}
	}
	return true
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

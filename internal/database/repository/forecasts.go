package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ForecastFilters defines list filters.
type ForecastFilters struct {
	Period    string
	Status    Status
	ProjectID string
}

// ForecastRepo handles order forecasts.
type ForecastRepo struct {
	db DBTX
}

func NewForecastRepo(db DBTX) *ForecastRepo { return &ForecastRepo{db: db} }

const forecastColumns = `id, project_id, project_code, project_name, customer_code, customer_name,
 accounting_period, accounting_item, description, amount, reconciliation_status, gl_match_id,
 is_excluded, exclusion_reason, period, version, created_at, updated_at`

// Insert stores f with version 1. Period is always taken from AccountingPeriod.
func (r *ForecastRepo) Insert(ctx context.Context, f OrderForecast) error {
	if f.Status == "" {
		f.Status = StatusUnmatched
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO order_forecasts(
	 id, project_id, project_code, project_name, customer_code, customer_name,
	 accounting_period, accounting_item, description, amount, reconciliation_status, gl_match_id,
	 is_excluded, exclusion_reason, period, version, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		f.ID, f.ProjectID, f.ProjectCode, f.ProjectName, f.CustomerCode, f.CustomerName,
		f.AccountingPeriod, f.AccountingItem, f.Description, f.Amount.String(), f.Status, f.GLMatchID,
		f.IsExcluded, f.ExclusionReason, f.AccountingPeriod)
	return err
}

// Get returns nil, nil when the forecast does not exist.
func (r *ForecastRepo) Get(ctx context.Context, id string) (*OrderForecast, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+forecastColumns+` FROM order_forecasts WHERE id = ?`, id)
	f, err := scanForecast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns forecasts in insertion order.
func (r *ForecastRepo) List(ctx context.Context, f ForecastFilters) ([]OrderForecast, error) {
	var where []string
	var args []any
	if f.Period != "" {
		where = append(where, "period = ?")
		args = append(args, f.Period)
	}
	if f.Status != "" {
		where = append(where, "reconciliation_status = ?")
		args = append(args, f.Status)
	}
	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	query := "SELECT " + forecastColumns + " FROM order_forecasts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderForecast
	for rows.Next() {
		fc, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

// UpdateContent rewrites the editable fields of f if the stored version still
// equals f.Version. It reports false on a version mismatch.
func (r *ForecastRepo) UpdateContent(ctx context.Context, f OrderForecast) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	UPDATE order_forecasts SET
	 project_id = ?, project_code = ?, project_name = ?, customer_code = ?, customer_name = ?,
	 accounting_period = ?, accounting_item = ?, description = ?, amount = ?, period = ?,
	 version = version + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND version = ?`,
		f.ProjectID, f.ProjectCode, f.ProjectName, f.CustomerCode, f.CustomerName,
		f.AccountingPeriod, f.AccountingItem, f.Description, f.Amount.String(), f.AccountingPeriod,
		f.ID, f.Version)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetMatch writes the reconciliation status and GL back-reference.
func (r *ForecastRepo) SetMatch(ctx context.Context, id string, status Status, glID sql.Null[string]) error {
	return execOne(ctx, r.db, `
	UPDATE order_forecasts SET reconciliation_status = ?, gl_match_id = ?,
	 version = version + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, status, glID, id)
}

// SetExclusion excludes or re-includes a forecast. Both directions clear the
// back-reference; re-inclusion also clears the reason.
func (r *ForecastRepo) SetExclusion(ctx context.Context, id string, excluded bool, reason sql.Null[string]) (bool, error) {
	status := StatusUnmatched
	if excluded {
		status = StatusExcluded
	} else {
		reason = None[string]()
	}
	res, err := r.db.ExecContext(ctx, `
	UPDATE order_forecasts SET is_excluded = ?, exclusion_reason = ?, reconciliation_status = ?,
	 gl_match_id = NULL, version = version + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, excluded, reason, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ForecastRepo) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, `DELETE FROM order_forecasts WHERE id = ?`, id)
}

func (r *ForecastRepo) DeleteByPeriod(ctx context.Context, period string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_forecasts WHERE period = ?`, period)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanForecast(row scanner) (OrderForecast, error) {
	var f OrderForecast
	var amount string
	if err := row.Scan(&f.ID, &f.ProjectID, &f.ProjectCode, &f.ProjectName, &f.CustomerCode, &f.CustomerName,
		&f.AccountingPeriod, &f.AccountingItem, &f.Description, &amount, &f.Status, &f.GLMatchID,
		&f.IsExcluded, &f.ExclusionReason, &f.Period, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return OrderForecast{}, err
	}
	d, err := parseStoredAmount(amount)
	if err != nil {
		return OrderForecast{}, err
	}
	f.Amount = d
	return f, nil
}

// ErrNoRow is returned by single-row writes that matched nothing.
var ErrNoRow = errors.New("no row affected")

func execOne(ctx context.Context, db DBTX, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrNoRow
	}
	return nil
}

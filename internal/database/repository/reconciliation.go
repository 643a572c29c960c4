package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ReconciliationLogRepo stores run summaries. Rows are never updated.
type ReconciliationLogRepo struct{ db DBTX }

func NewReconciliationLogRepo(db DBTX) *ReconciliationLogRepo {
	return &ReconciliationLogRepo{db: db}
}

func (r *ReconciliationLogRepo) Add(ctx context.Context, l ReconciliationLog) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO reconciliation_logs(
	 id, period, executed_at, matched_count, fuzzy_matched_count, unmatched_order_count,
	 unmatched_gl_count, total_order_count, total_gl_count)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.Period, l.ExecutedAt, l.MatchedCount, l.FuzzyMatchedCount, l.UnmatchedOrderCount,
		l.UnmatchedGLCount, l.TotalOrderCount, l.TotalGLCount)
	return err
}

// List returns logs newest first. An empty period lists every period.
func (r *ReconciliationLogRepo) List(ctx context.Context, period string) ([]ReconciliationLog, error) {
	query := `SELECT id, period, executed_at, matched_count, fuzzy_matched_count, unmatched_order_count, unmatched_gl_count, total_order_count, total_gl_count FROM reconciliation_logs`
	var args []any
	if period != "" {
		query += ` WHERE period = ?`
		args = append(args, period)
	}
	query += ` ORDER BY executed_at DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReconciliationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ReconciliationLogRepo) Get(ctx context.Context, id string) (*ReconciliationLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, period, executed_at, matched_count, fuzzy_matched_count, unmatched_order_count, unmatched_gl_count, total_order_count, total_gl_count FROM reconciliation_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLog(row scanner) (ReconciliationLog, error) {
	var l ReconciliationLog
	err := row.Scan(&l.ID, &l.Period, &l.ExecutedAt, &l.MatchedCount, &l.FuzzyMatchedCount,
		&l.UnmatchedOrderCount, &l.UnmatchedGLCount, &l.TotalOrderCount, &l.TotalGLCount)
	return l, err
}

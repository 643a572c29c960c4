package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// insertBatchSize keeps multi-row inserts well under SQLite's bound-parameter limit.
const insertBatchSize = 50

// GLEntryRepo handles general-ledger entries.
type GLEntryRepo struct {
	db DBTX
}

func NewGLEntryRepo(db DBTX) *GLEntryRepo { return &GLEntryRepo{db: db} }

const glColumns = `id, voucher_no, transaction_date, account_code, account_name, sub_account_code,
 sub_account_name, counter_account_code, counter_account_name, amount, debit_credit, description,
 period, reconciliation_status, order_match_id, is_excluded, exclusion_reason, row_number,
 created_at, updated_at`

const glInsertColumns = 18

// InsertBatch inserts entries with multi-row statements. Callers wanting
// all-or-nothing semantics run it inside a transaction.
func (r *GLEntryRepo) InsertBatch(ctx context.Context, entries []GLEntry) error {
	for start := 0; start < len(entries); start += insertBatchSize {
		end := min(start+insertBatchSize, len(entries))
		chunk := entries[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO gl_entries(
		 id, voucher_no, transaction_date, account_code, account_name, sub_account_code,
		 sub_account_name, counter_account_code, counter_account_name, amount, debit_credit, description,
		 period, reconciliation_status, order_match_id, is_excluded, exclusion_reason, row_number,
		 created_at, updated_at) VALUES `)
		args := make([]any, 0, len(chunk)*glInsertColumns)
		placeholder := "(" + strings.Repeat("?, ", glInsertColumns-1) + "?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)"
		for i, e := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			if e.Status == "" {
				e.Status = StatusUnmatched
			}
			args = append(args,
				e.ID, e.VoucherNo, e.TransactionDate, e.AccountCode, e.AccountName, e.SubAccountCode,
				e.SubAccountName, e.CounterAccountCode, e.CounterAccountName, e.Amount.String(), e.DebitCredit, e.Description,
				e.Period, e.Status, e.OrderMatchID, e.IsExcluded, e.ExclusionReason, e.RowNumber)
		}
		if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert gl entries %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

// Get returns nil, nil when the entry does not exist.
func (r *GLEntryRepo) Get(ctx context.Context, id string) (*GLEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+glColumns+` FROM gl_entries WHERE id = ?`, id)
	e, err := scanGLEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByPeriod returns the period's entries in import order.
func (r *GLEntryRepo) ListByPeriod(ctx context.Context, period string) ([]GLEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+glColumns+` FROM gl_entries WHERE period = ? ORDER BY rowid ASC`, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GLEntry
	for rows.Next() {
		e, err := scanGLEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByPeriod returns how many entries exist for period.
func (r *GLEntryRepo) CountByPeriod(ctx context.Context, period string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gl_entries WHERE period = ?`, period).Scan(&n)
	return n, err
}

// SetMatch writes the reconciliation status and order back-reference.
func (r *GLEntryRepo) SetMatch(ctx context.Context, id string, status Status, orderID sql.Null[string]) error {
	return execOne(ctx, r.db, `
	UPDATE gl_entries SET reconciliation_status = ?, order_match_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, status, orderID, id)
}

// SetExclusion mirrors ForecastRepo.SetExclusion.
func (r *GLEntryRepo) SetExclusion(ctx context.Context, id string, excluded bool, reason sql.Null[string]) (bool, error) {
	status := StatusUnmatched
	if excluded {
		status = StatusExcluded
	} else {
		reason = None[string]()
	}
	res, err := r.db.ExecContext(ctx, `
	UPDATE gl_entries SET is_excluded = ?, exclusion_reason = ?, reconciliation_status = ?,
	 order_match_id = NULL, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, excluded, reason, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *GLEntryRepo) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, `DELETE FROM gl_entries WHERE id = ?`, id)
}

func (r *GLEntryRepo) DeleteByPeriod(ctx context.Context, period string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gl_entries WHERE period = ?`, period)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanGLEntry(row scanner) (GLEntry, error) {
	var e GLEntry
	var amount string
	if err := row.Scan(&e.ID, &e.VoucherNo, &e.TransactionDate, &e.AccountCode, &e.AccountName, &e.SubAccountCode,
		&e.SubAccountName, &e.CounterAccountCode, &e.CounterAccountName, &amount, &e.DebitCredit, &e.Description,
		&e.Period, &e.Status, &e.OrderMatchID, &e.IsExcluded, &e.ExclusionReason, &e.RowNumber,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return GLEntry{}, err
	}
	d, err := parseStoredAmount(amount)
	if err != nil {
		return GLEntry{}, err
	}
	e.Amount = d
	return e, nil
}

func parseStoredAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("stored amount %q: %w", s, err)
	}
	return d, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ProjectRepo handles projects.
type ProjectRepo struct {
	db DBTX
}

func NewProjectRepo(db DBTX) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Upsert(ctx context.Context, p Project) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO projects(id, code, name, customer_code, customer_name, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(code) DO UPDATE SET
	 name=excluded.name,
	 customer_code=excluded.customer_code,
	 customer_name=excluded.customer_name,
	 updated_at=CURRENT_TIMESTAMP;
	`, p.ID, p.Code, p.Name, p.CustomerCode, p.CustomerName)
	return err
}

func (r *ProjectRepo) List(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, customer_code, customer_name, created_at, updated_at FROM projects ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ByCode returns nil, nil when no project has the code.
func (r *ProjectRepo) ByCode(ctx context.Context, code string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, code, name, customer_code, customer_name, created_at, updated_at FROM projects WHERE code = ?`, code)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProject(row scanner) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CustomerCode, &p.CustomerName, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

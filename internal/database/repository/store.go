package repository

import (
	"context"
	"database/sql"

	"github.com/jask/glrecon/internal/database"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos groups the table repositories bound to one connection or transaction.
type Repos struct {
	Projects  *ProjectRepo
	Forecasts *ForecastRepo
	GL        *GLEntryRepo
	Logs      *ReconciliationLogRepo
}

// NewRepos binds all repositories to db.
func NewRepos(db DBTX) Repos {
	return Repos{
		Projects:  NewProjectRepo(db),
		Forecasts: NewForecastRepo(db),
		GL:        NewGLEntryRepo(db),
		Logs:      NewReconciliationLogRepo(db),
	}
}

// Store hands out repositories outside and inside transactions.
type Store struct {
	db   *sql.DB
	read Repos
}

func NewStore(db *sql.DB) *Store { return &Store{db: db, read: NewRepos(db)} }

// Read returns repositories that run outside any transaction.
func (s *Store) Read() Repos { return s.read }

// InTx runs fn with repositories bound to a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(Repos) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(NewRepos(tx))
	})
}

type scanner interface {
	Scan(dest ...any) error
}

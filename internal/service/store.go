package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
)

// Store is the persistence the services need. *repository.Store satisfies it.
type Store interface {
	Read() repository.Repos
	// InTx runs fn in one transaction. Repositories from Read must not be
	// used inside fn.
	InTx(ctx context.Context, fn func(repository.Repos) error) error
}

// internal wraps persistence failures. Errors that already carry a kind pass through.
func internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(op, err)
}

func optional(s string) sql.Null[string] {
	if s == "" {
		return repository.None[string]()
	}
	return repository.Some(s)
}

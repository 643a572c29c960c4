package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/lock"
	"github.com/jask/glrecon/internal/period"
)

// MaintenanceService houses the destructive operations. Deletes take the
// period lock so they never interleave with a reconciliation run.
type MaintenanceService struct {
	Store  Store
	Locker lock.Locker
	Log    logrus.FieldLogger
}

// DeleteGLByPeriod unmatches every forecast paired with a GL entry of the
// period and then deletes the period's entries, all in one transaction.
func (s *MaintenanceService) DeleteGLByPeriod(ctx context.Context, p string) (int64, error) {
	if err := period.Check(p); err != nil {
		return 0, err
	}
	release, err := s.lock(ctx, p)
	if err != nil {
		return 0, err
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	var deleted int64
	err = s.Store.InTx(ctx, func(tx repository.Repos) error {
		entries, err := tx.GL.ListByPeriod(ctx, p)
		if err != nil {
			return err
		}
		for _, g := range entries {
			if g.OrderMatchID.Valid {
				if err := releaseForecast(ctx, tx, g.OrderMatchID.V, g.ID); err != nil {
					return err
				}
			}
		}
		deleted, err = tx.GL.DeleteByPeriod(ctx, p)
		return err
	})
	if err != nil {
		return 0, internal("delete gl period", err)
	}
	s.Log.WithFields(logrus.Fields{"module": "maintenance", "period": p, "deleted": deleted}).Info("gl period deleted")
	return deleted, nil
}

// DeleteForecastsByPeriod is DeleteGLByPeriod for the forecast side.
func (s *MaintenanceService) DeleteForecastsByPeriod(ctx context.Context, p string) (int64, error) {
	if err := period.Check(p); err != nil {
		return 0, err
	}
	release, err := s.lock(ctx, p)
	if err != nil {
		return 0, err
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	var deleted int64
	err = s.Store.InTx(ctx, func(tx repository.Repos) error {
		orders, err := tx.Forecasts.List(ctx, repository.ForecastFilters{Period: p})
		if err != nil {
			return err
		}
		for _, o := range orders {
			if o.GLMatchID.Valid {
				if err := releaseGL(ctx, tx, o.GLMatchID.V, o.ID); err != nil {
					return err
				}
			}
		}
		deleted, err = tx.Forecasts.DeleteByPeriod(ctx, p)
		return err
	})
	if err != nil {
		return 0, internal("delete forecast period", err)
	}
	s.Log.WithFields(logrus.Fields{"module": "maintenance", "period": p, "deleted": deleted}).Info("forecast period deleted")
	return deleted, nil
}

// DeleteGLEntry removes one entry after unmatching its forecast.
func (s *MaintenanceService) DeleteGLEntry(ctx context.Context, id string) error {
	err := s.Store.InTx(ctx, func(tx repository.Repos) error {
		g, err := tx.GL.Get(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return apperr.NotFound("gl entry", id)
		}
		if g.OrderMatchID.Valid {
			if err := releaseForecast(ctx, tx, g.OrderMatchID.V, g.ID); err != nil {
				return err
			}
		}
		return tx.GL.Delete(ctx, id)
	})
	return internal("delete gl entry", err)
}

func (s *MaintenanceService) lock(ctx context.Context, p string) (lock.Release, error) {
	if s.Locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	release, err := s.Locker.TryLock(ctx, p)
	if errors.Is(err, lock.ErrHeld) {
		return nil, apperr.Conflict("period %s is being reconciled", p)
	}
	if err != nil {
		return nil, apperr.Internal("lock period", err)
	}
	return release, nil
}

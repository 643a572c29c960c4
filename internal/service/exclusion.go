package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/database/repository"
)

// SetForecastExclusion excludes or re-includes forecasts and returns how many
// changed. Unknown ids are ignored. Excluding a matched forecast unmatches its
// GL partner in the same transaction.
func (r *Reconciler) SetForecastExclusion(ctx context.Context, ids []string, excluded bool, reason string) (int, error) {
	updated := 0
	err := r.Store.InTx(ctx, func(tx repository.Repos) error {
		updated = 0
		for _, id := range ids {
			f, err := tx.Forecasts.Get(ctx, id)
			if err != nil {
				return err
			}
			if f == nil || (!excluded && !f.IsExcluded) {
				continue
			}
			if f.GLMatchID.Valid {
				if err := releaseGL(ctx, tx, f.GLMatchID.V, f.ID); err != nil {
					return err
				}
			}
			ok, err := tx.Forecasts.SetExclusion(ctx, id, excluded, optional(reason))
			if err != nil {
				return err
			}
			if ok {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, internal("set forecast exclusion", err)
	}
	r.Log.WithFields(logrus.Fields{"module": "reconciler", "excluded": excluded, "updated": updated}).Info("forecast exclusion")
	return updated, nil
}

// SetGLExclusion mirrors SetForecastExclusion for GL entries.
func (r *Reconciler) SetGLExclusion(ctx context.Context, ids []string, excluded bool, reason string) (int, error) {
	updated := 0
	err := r.Store.InTx(ctx, func(tx repository.Repos) error {
		updated = 0
		for _, id := range ids {
			g, err := tx.GL.Get(ctx, id)
			if err != nil {
				return err
			}
			if g == nil || (!excluded && !g.IsExcluded) {
				continue
			}
			if g.OrderMatchID.Valid {
				if err := releaseForecast(ctx, tx, g.OrderMatchID.V, g.ID); err != nil {
					return err
				}
			}
			ok, err := tx.GL.SetExclusion(ctx, id, excluded, optional(reason))
			if err != nil {
				return err
			}
			if ok {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, internal("set gl exclusion", err)
	}
	r.Log.WithFields(logrus.Fields{"module": "reconciler", "excluded": excluded, "updated": updated}).Info("gl exclusion")
	return updated, nil
}

// releaseGL resets a GL entry that points at orderID. Entries that are gone or
// point elsewhere are left alone.
func releaseGL(ctx context.Context, tx repository.Repos, glID, orderID string) error {
	g, err := tx.GL.Get(ctx, glID)
	if err != nil || g == nil {
		return err
	}
	if !g.OrderMatchID.Valid || g.OrderMatchID.V != orderID {
		return nil
	}
	return tx.GL.SetMatch(ctx, glID, repository.StatusUnmatched, repository.None[string]())
}

func releaseForecast(ctx context.Context, tx repository.Repos, orderID, glID string) error {
	f, err := tx.Forecasts.Get(ctx, orderID)
	if err != nil || f == nil {
		return err
	}
	if !f.GLMatchID.Valid || f.GLMatchID.V != glID {
		return nil
	}
	return tx.Forecasts.SetMatch(ctx, orderID, repository.StatusUnmatched, repository.None[string]())
}

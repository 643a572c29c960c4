package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/lock"
	"github.com/jask/glrecon/internal/logging"
	"github.com/jask/glrecon/internal/matching"
	"github.com/jask/glrecon/internal/period"
)

// Reconciler runs matching passes and the manual match operations.
type Reconciler struct {
	Store  Store
	Locker lock.Locker
	Log    logrus.FieldLogger
	Now    func() time.Time
}

// NewReconciler fills in an in-process locker and a discarding logger when
// they are nil.
func NewReconciler(store Store, locker lock.Locker, log logrus.FieldLogger) *Reconciler {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Reconciler{Store: store, Locker: locker, Log: log, Now: time.Now}
}

// RunSummary reports one ExecuteReconciliation call.
type RunSummary struct {
	LogID               string
	Period              string
	MatchedCount        int
	UnmatchedOrderCount int
	UnmatchedGLCount    int
	TotalOrderCount     int
	TotalGLCount        int

	// Pairs the engine accepted whose commit failed. They are counted as unmatched.
	FailedPairs int

	AlreadyMatchedOrders int
	ExcludedOrders       int
	AlreadyMatchedGL     int
	ExcludedGL           int
}

// ExecuteReconciliation matches the period's open forecasts against its open
// GL entries. Each pair is committed in its own transaction; a pair that fails
// to commit is logged and left unmatched while the run continues. One
// reconciliation log row is written per run.
func (r *Reconciler) ExecuteReconciliation(ctx context.Context, p string) (RunSummary, error) {
	if err := period.Check(p); err != nil {
		return RunSummary{}, err
	}
	release, err := r.Locker.TryLock(ctx, p)
	if errors.Is(err, lock.ErrHeld) {
		return RunSummary{}, apperr.Conflict("reconciliation for %s is already running", p)
	}
	if err != nil {
		return RunSummary{}, apperr.Internal("lock period", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	orders, entries, err := r.loadPeriod(ctx, p)
	if err != nil {
		return RunSummary{}, err
	}

	res := matching.Run(orders, entries)

	failed := 0
	for _, pair := range res.Matched {
		if err := r.commitPair(ctx, pair.Order.ID, pair.GL.ID); err != nil {
			failed++
			logging.LogError(r.Log, "reconciler", "ExecuteReconciliation", logrus.Fields{
				"period":  p,
				"orderId": pair.Order.ID,
				"glId":    pair.GL.ID,
			}, err)
		}
	}

	sum := RunSummary{
		LogID:                uuid.NewString(),
		Period:               p,
		MatchedCount:         len(res.Matched) - failed,
		UnmatchedOrderCount:  len(res.UnmatchedOrders) + failed,
		UnmatchedGLCount:     len(res.UnmatchedGL) + failed,
		TotalOrderCount:      len(orders),
		TotalGLCount:         len(entries),
		FailedPairs:          failed,
		AlreadyMatchedOrders: res.AlreadyMatchedOrders,
		ExcludedOrders:       res.ExcludedOrders,
		AlreadyMatchedGL:     res.AlreadyMatchedGL,
		ExcludedGL:           res.ExcludedGL,
	}

	entry := repository.ReconciliationLog{
		ID:                  sum.LogID,
		Period:              p,
		ExecutedAt:          r.now(),
		MatchedCount:        sum.MatchedCount,
		UnmatchedOrderCount: sum.UnmatchedOrderCount,
		UnmatchedGLCount:    sum.UnmatchedGLCount,
		TotalOrderCount:     sum.TotalOrderCount,
		TotalGLCount:        sum.TotalGLCount,
	}
	if err := r.Store.Read().Logs.Add(ctx, entry); err != nil {
		return sum, apperr.Internal("write reconciliation log", err)
	}

	r.Log.WithFields(logrus.Fields{
		"module":  "reconciler",
		"period":  p,
		"matched": sum.MatchedCount,
		"failed":  failed,
		"orders":  sum.TotalOrderCount,
		"gl":      sum.TotalGLCount,
	}).Info("reconciliation complete")
	return sum, nil
}

// loadPeriod reads both sides of a period concurrently.
func (r *Reconciler) loadPeriod(ctx context.Context, p string) ([]repository.OrderForecast, []repository.GLEntry, error) {
	repos := r.Store.Read()
	var orders []repository.OrderForecast
	var entries []repository.GLEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = repos.Forecasts.List(gctx, repository.ForecastFilters{Period: p})
		if err != nil {
			return fmt.Errorf("load forecasts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = repos.GL.ListByPeriod(gctx, p)
		if err != nil {
			return fmt.Errorf("load gl entries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, apperr.Internal("load period", err)
	}
	return orders, entries, nil
}

// errStalePair reports a pair whose records changed between load and commit.
var errStalePair = errors.New("pair no longer open")

// commitPair writes both back-references in one transaction. Both records are
// read again first; a manual match, unmatch or exclusion that landed after the
// period was loaded wins and the pair is not written.
func (r *Reconciler) commitPair(ctx context.Context, orderID, glID string) error {
	return r.Store.InTx(ctx, func(tx repository.Repos) error {
		o, g, err := loadPair(ctx, tx, glID, orderID)
		if err != nil {
			return err
		}
		if !o.Open() || !g.Open() {
			return fmt.Errorf("forecast %s / gl entry %s: %w", orderID, glID, errStalePair)
		}
		if err := tx.Forecasts.SetMatch(ctx, orderID, repository.StatusMatched, repository.Some(glID)); err != nil {
			return fmt.Errorf("match forecast %s: %w", orderID, err)
		}
		if err := tx.GL.SetMatch(ctx, glID, repository.StatusMatched, repository.Some(orderID)); err != nil {
			return fmt.Errorf("match gl entry %s: %w", glID, err)
		}
		return nil
	})
}

// ManualReconcile force-matches a pair without evaluating the match rules.
// Matching a pair that is already mutually matched is a no-op.
func (r *Reconciler) ManualReconcile(ctx context.Context, glID, orderID string) error {
	err := r.Store.InTx(ctx, func(tx repository.Repos) error {
		o, g, err := loadPair(ctx, tx, glID, orderID)
		if err != nil {
			return err
		}
		if o.IsExcluded || g.IsExcluded {
			return apperr.Conflict("excluded records cannot be matched")
		}
		if mutual(o, g) {
			return nil
		}
		if o.GLMatchID.Valid {
			return apperr.Conflict("forecast %s is already matched to gl entry %s", o.ID, o.GLMatchID.V)
		}
		if g.OrderMatchID.Valid {
			return apperr.Conflict("gl entry %s is already matched to forecast %s", g.ID, g.OrderMatchID.V)
		}
		if err := tx.Forecasts.SetMatch(ctx, o.ID, repository.StatusMatched, repository.Some(g.ID)); err != nil {
			return err
		}
		return tx.GL.SetMatch(ctx, g.ID, repository.StatusMatched, repository.Some(o.ID))
	})
	if err != nil {
		return internal("manual reconcile", err)
	}
	r.Log.WithFields(logrus.Fields{"module": "reconciler", "orderId": orderID, "glId": glID}).Info("manual match")
	return nil
}

// UnmatchReconciliation clears both sides of a pair back to unmatched.
// Unmatching a pair that is not matched is a no-op; unmatching a record whose
// partner is a different record is a conflict.
func (r *Reconciler) UnmatchReconciliation(ctx context.Context, glID, orderID string) error {
	err := r.Store.InTx(ctx, func(tx repository.Repos) error {
		o, g, err := loadPair(ctx, tx, glID, orderID)
		if err != nil {
			return err
		}
		if o.GLMatchID.Valid && o.GLMatchID.V != g.ID {
			return apperr.Conflict("forecast %s is matched to gl entry %s, not %s", o.ID, o.GLMatchID.V, g.ID)
		}
		if g.OrderMatchID.Valid && g.OrderMatchID.V != o.ID {
			return apperr.Conflict("gl entry %s is matched to forecast %s, not %s", g.ID, g.OrderMatchID.V, o.ID)
		}
		if o.GLMatchID.Valid {
			if err := tx.Forecasts.SetMatch(ctx, o.ID, repository.StatusUnmatched, repository.None[string]()); err != nil {
				return err
			}
		}
		if g.OrderMatchID.Valid {
			if err := tx.GL.SetMatch(ctx, g.ID, repository.StatusUnmatched, repository.None[string]()); err != nil {
				return err
			}
		}
		return nil
	})
	return internal("unmatch", err)
}

func loadPair(ctx context.Context, tx repository.Repos, glID, orderID string) (*repository.OrderForecast, *repository.GLEntry, error) {
	o, err := tx.Forecasts.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, apperr.NotFound("forecast", orderID)
	}
	g, err := tx.GL.Get(ctx, glID)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, apperr.NotFound("gl entry", glID)
	}
	return o, g, nil
}

func mutual(o *repository.OrderForecast, g *repository.GLEntry) bool {
	return o.GLMatchID.Valid && o.GLMatchID.V == g.ID &&
		g.OrderMatchID.Valid && g.OrderMatchID.V == o.ID &&
		o.Status == g.Status && (o.Status == repository.StatusMatched || o.Status == repository.StatusFuzzy)
}

// ListGLEntries returns the period's entries in import order.
func (r *Reconciler) ListGLEntries(ctx context.Context, p string) ([]repository.GLEntry, error) {
	if err := period.Check(p); err != nil {
		return nil, err
	}
	out, err := r.Store.Read().GL.ListByPeriod(ctx, p)
	if err != nil {
		return nil, apperr.Internal("list gl entries", err)
	}
	return out, nil
}

// ListReconciliationLogs returns run logs newest first. An empty period lists all.
func (r *Reconciler) ListReconciliationLogs(ctx context.Context, p string) ([]repository.ReconciliationLog, error) {
	if p != "" {
		if err := period.Check(p); err != nil {
			return nil, err
		}
	}
	logs, err := r.Store.Read().Logs.List(ctx, p)
	if err != nil {
		return nil, apperr.Internal("list reconciliation logs", err)
	}
	return logs, nil
}

func (r *Reconciler) GetReconciliationLog(ctx context.Context, id string) (*repository.ReconciliationLog, error) {
	l, err := r.Store.Read().Logs.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal("get reconciliation log", err)
	}
	if l == nil {
		return nil, apperr.NotFound("reconciliation log", id)
	}
	return l, nil
}

func (r *Reconciler) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

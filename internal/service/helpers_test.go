package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/glrecon/internal/database"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/lock"
	"github.com/jask/glrecon/internal/logging"
)

type testEnv struct {
	ctx       context.Context
	db        *sql.DB
	store     *repository.Store
	locker    *lock.LocalLocker
	recon     *Reconciler
	ingest    *IngestService
	forecasts *ForecastService
	maint     *MaintenanceService
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewStore(db)
	locker := lock.NewLocal()
	log := logging.Discard()
	return &testEnv{
		ctx:       ctx,
		db:        db,
		store:     store,
		locker:    locker,
		recon:     NewReconciler(store, locker, log),
		ingest:    NewIngestService(store, nil, "auto", time.Minute, log),
		forecasts: &ForecastService{Store: store},
		maint:     &MaintenanceService{Store: store, Locker: locker, Log: log},
	}
}

func (e *testEnv) project(t *testing.T, code string) *repository.Project {
	t.Helper()
	p, err := e.forecasts.UpsertProject(e.ctx, repository.Project{
		Code:         code,
		Name:         "案件 " + code,
		CustomerCode: "C-" + code,
		CustomerName: "顧客 " + code,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) forecast(t *testing.T, period, item, desc, amount string) *repository.OrderForecast {
	t.Helper()
	if p, _ := e.store.Read().Projects.ByCode(e.ctx, "PJ-001"); p == nil {
		e.project(t, "PJ-001")
	}
	f, err := e.forecasts.CreateForecast(e.ctx, ForecastInput{
		ProjectCode:      "PJ-001",
		AccountingItem:   item,
		AccountingPeriod: period,
		Description:      desc,
		Amount:           decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return f
}

// glLine builds one 22-column export row.
func glLine(code, name, date, desc, debit, credit string) string {
	cols := make([]string, 22)
	cols[0] = code
	cols[1] = name
	cols[6] = date
	cols[7] = "V001"
	cols[8] = "135"
	cols[9] = "売掛金"
	cols[14] = desc
	cols[17] = debit
	cols[19] = credit
	return strings.Join(cols, ",")
}

func (e *testEnv) importGL(t *testing.T, lines ...string) ImportResult {
	t.Helper()
	res, err := e.ingest.ImportGL(e.ctx, []byte(strings.Join(lines, "\n")), "utf-8")
	require.NoError(t, err)
	return res
}

func (e *testEnv) gl(t *testing.T, period string) []repository.GLEntry {
	t.Helper()
	out, err := e.store.Read().GL.ListByPeriod(e.ctx, period)
	require.NoError(t, err)
	return out
}

func (e *testEnv) getForecast(t *testing.T, id string) *repository.OrderForecast {
	t.Helper()
	f, err := e.store.Read().Forecasts.Get(e.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func (e *testEnv) getGL(t *testing.T, id string) *repository.GLEntry {
	t.Helper()
	g, err := e.store.Read().GL.Get(e.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func requireMutual(t *testing.T, f *repository.OrderForecast, g *repository.GLEntry) {
	t.Helper()
	require.Equal(t, repository.StatusMatched, f.Status)
	require.Equal(t, repository.StatusMatched, g.Status)
	require.Equal(t, repository.Some(g.ID), f.GLMatchID)
	require.Equal(t, repository.Some(f.ID), g.OrderMatchID)
}

func requireOpen(t *testing.T, f *repository.OrderForecast, g *repository.GLEntry) {
	t.Helper()
	if f != nil {
		require.Equal(t, repository.StatusUnmatched, f.Status)
		require.False(t, f.GLMatchID.Valid)
	}
	if g != nil {
		require.Equal(t, repository.StatusUnmatched, g.Status)
		require.False(t, g.OrderMatchID.Valid)
	}
}

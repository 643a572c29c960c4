package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/glrecon/internal/apperr"
)

func TestCreateForecastValidation(t *testing.T) {
	t.Parallel()
	e := setup(t)
	e.project(t, "PJ-001")

	in := ForecastInput{ProjectCode: "PJ-001", AccountingItem: "保守売上", AccountingPeriod: "2025/10", Amount: decimal.NewFromInt(1)}
	_, err := e.forecasts.CreateForecast(e.ctx, in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	in.AccountingPeriod = "2025-10"
	in.ProjectCode = "PJ-404"
	_, err = e.forecasts.CreateForecast(e.ctx, in)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	in.ProjectCode = "PJ-001"
	f, err := e.forecasts.CreateForecast(e.ctx, in)
	require.NoError(t, err)
	require.Equal(t, "2025-10", f.Period)
	require.Equal(t, 1, f.Version)
	require.Equal(t, "案件 PJ-001", f.ProjectName)
}

func TestUpdateForecastOptimisticVersion(t *testing.T) {
	t.Parallel()
	e := setup(t)
	f := e.forecast(t, "2025-10", "保守売上", "保守契約料", "50000")

	in := ForecastInput{
		ProjectCode:      "PJ-001",
		AccountingItem:   "保守売上",
		AccountingPeriod: "2025-11",
		Description:      "保守契約料",
		Amount:           decimal.NewFromInt(60000),
	}
	updated, err := e.forecasts.UpdateForecast(e.ctx, f.ID, f.Version, in)
	require.NoError(t, err)
	require.Equal(t, "2025-11", updated.Period, "period follows accounting period")
	require.Equal(t, f.Version+1, updated.Version)

	_, err = e.forecasts.UpdateForecast(e.ctx, f.ID, f.Version, in)
	require.True(t, apperr.IsKind(err, apperr.KindConflict), "stale version")

	_, err = e.forecasts.UpdateForecast(e.ctx, "missing", 1, in)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestMatchedForecastIsProtected(t *testing.T) {
	t.Parallel()
	e := setup(t)
	f := e.forecast(t, "2025-10", "保守売上", "保守契約料", "50000")
	e.importGL(t, glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"))
	g := e.gl(t, "2025-10")[0]
	require.NoError(t, e.recon.ManualReconcile(e.ctx, g.ID, f.ID))
	cur := e.getForecast(t, f.ID)

	in := ForecastInput{
		ProjectCode:      "PJ-001",
		AccountingItem:   "保守売上",
		AccountingPeriod: "2025-10",
		Description:      "保守契約料",
		Amount:           decimal.NewFromInt(1),
	}
	_, err := e.forecasts.UpdateForecast(e.ctx, f.ID, cur.Version, in)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	err = e.forecasts.DeleteForecast(e.ctx, f.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))

	require.NoError(t, e.recon.UnmatchReconciliation(e.ctx, g.ID, f.ID))
	require.NoError(t, e.forecasts.DeleteForecast(e.ctx, f.ID))
	err = e.forecasts.DeleteForecast(e.ctx, f.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpsertProject(t *testing.T) {
	t.Parallel()
	e := setup(t)
	first := e.project(t, "PJ-001")

	renamed := *first
	renamed.ID = ""
	renamed.Name = "改名"
	again, err := e.forecasts.UpsertProject(e.ctx, renamed)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID, "code is the business key")
	require.Equal(t, "改名", again.Name)

	renamed.Name = ""
	_, err = e.forecasts.UpsertProject(e.ctx, renamed)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

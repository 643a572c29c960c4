package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/ingest"
	"github.com/jask/glrecon/internal/service"
)

func TestRenderRunShowsFailedPairsOnlyWhenPresent(t *testing.T) {
	sum := service.RunSummary{LogID: "log-1", Period: "2025-10", MatchedCount: 3, TotalOrderCount: 4, TotalGLCount: 3, UnmatchedOrderCount: 1}
	out := renderRun(sum)
	require.Contains(t, out, "2025-10")
	require.Contains(t, out, "log-1")
	require.NotContains(t, out, "failed pairs")

	sum.FailedPairs = 1
	require.Contains(t, renderRun(sum), "failed pairs")
}

func TestRenderImportListsRowErrors(t *testing.T) {
	out := renderImport("GL", service.ImportResult{
		Encoding:     "shift_jis",
		TotalRows:    3,
		ImportedRows: 1,
		SkippedRows:  1,
		Errors:       []ingest.RowError{{Row: 2, Err: errors.New("bad amount")}},
		Periods:      []string{"2025-10"},
	})
	require.Contains(t, out, "shift_jis")
	require.Contains(t, out, "row 2: bad amount")
	require.Contains(t, out, "2025-10")
}

func TestRenderEmptyLists(t *testing.T) {
	require.Contains(t, renderLogs(nil), "no reconciliation runs")
	require.Contains(t, renderCandidates(nil), "no candidates")

	out := renderLogs([]repository.ReconciliationLog{{ID: "abc", Period: "2025-10", ExecutedAt: time.Now(), MatchedCount: 2}})
	require.Contains(t, out, "abc")
}

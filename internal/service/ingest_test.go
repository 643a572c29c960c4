package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/charset"
	"github.com/jask/glrecon/internal/database/repository"
)

func sjis(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestImportGLShiftJISAutoDetect(t *testing.T) {
	t.Parallel()
	e := setup(t)
	data := sjis(t, strings.Join([]string{
		glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"),
		glLine("100", "現金", "20251015", "対象外", "1", "0"),
		glLine("512", "ｶｲﾊﾂｳﾘｱｹﾞ", "2025/10/31", "開発費", "0", `"1,200,000"`),
		glLine("513", "導入売上", "2025-10-01", "日付不正", "10", "0"),
	}, "\r\n"))

	res, err := e.ingest.ImportGL(e.ctx, data, "")
	require.NoError(t, err)
	require.Equal(t, charset.ShiftJIS, res.Encoding)
	require.Equal(t, 4, res.TotalRows)
	require.Equal(t, 2, res.ImportedRows)
	require.Equal(t, 1, res.SkippedRows)
	require.Len(t, res.Errors, 1)
	require.Equal(t, 4, res.Errors[0].Row)
	require.Equal(t, []string{"2025-10"}, res.Periods)

	entries := e.gl(t, "2025-10")
	require.Len(t, entries, 2)
	require.Equal(t, "保守売上", entries[0].AccountName)
	require.Equal(t, "2025-10-15", entries[0].TransactionDate)
	require.Equal(t, "カイハツウリアゲ", entries[1].AccountName)
	require.Equal(t, "1200000", entries[1].Amount.String())
	require.Equal(t, 3, entries[1].RowNumber)
}

func TestImportGLExplicitEncodingFailsLoudly(t *testing.T) {
	t.Parallel()
	e := setup(t)
	data := sjis(t, glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"))

	_, err := e.ingest.ImportGL(e.ctx, data, "utf-8")
	require.True(t, apperr.IsKind(err, apperr.KindEncoding))
	require.Empty(t, e.gl(t, "2025-10"))
}

func TestImportGLRejectsDuplicatePeriod(t *testing.T) {
	t.Parallel()
	e := setup(t)
	e.importGL(t, glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"))

	data := strings.Join([]string{
		glLine("511", "保守売上", "20251101", "11月分", "50000", "0"),
		glLine("511", "保守売上", "20251020", "追加", "1000", "0"),
	}, "\n")
	_, err := e.ingest.ImportGL(e.ctx, []byte(data), "utf-8")
	require.True(t, apperr.IsKind(err, apperr.KindDuplicatePeriod))

	require.Len(t, e.gl(t, "2025-10"), 1)
	require.Empty(t, e.gl(t, "2025-11"), "nothing from the rejected file is written")
}

func TestImportGLAllRowsOrNothing(t *testing.T) {
	t.Parallel()
	e := setup(t)
	_, err := e.db.ExecContext(e.ctx, `
	CREATE TRIGGER fail_insert BEFORE INSERT ON gl_entries
	WHEN NEW.description = 'poison'
	BEGIN SELECT RAISE(ABORT, 'forced failure'); END;`)
	require.NoError(t, err)

	var lines []string
	for i := 0; i < 120; i++ {
		lines = append(lines, glLine("511", "保守売上", "20251015", "ok", "100", "0"))
	}
	lines = append(lines, glLine("511", "保守売上", "20251015", "poison", "100", "0"))
	_, err = e.ingest.ImportGL(e.ctx, []byte(strings.Join(lines, "\n")), "utf-8")
	require.True(t, apperr.IsKind(err, apperr.KindInternal))
	require.Empty(t, e.gl(t, "2025-10"))
}

func TestPreviewThenCommitGLImport(t *testing.T) {
	t.Parallel()
	e := setup(t)
	data := []byte(glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"))

	pv, err := e.ingest.PreviewGLImport(e.ctx, data, "utf-8")
	require.NoError(t, err)
	require.NotEmpty(t, pv.Token)
	require.Equal(t, 1, pv.Result.ImportedRows)
	require.Len(t, pv.Sample, 1)
	require.Empty(t, e.gl(t, "2025-10"), "preview writes nothing")

	res, err := e.ingest.CommitGLImport(e.ctx, pv.Token)
	require.NoError(t, err)
	require.Equal(t, 1, res.ImportedRows)
	require.Len(t, e.gl(t, "2025-10"), 1)

	_, err = e.ingest.CommitGLImport(e.ctx, pv.Token)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound), "tokens are single use")
}

func TestCommitGLImportRechecksPeriod(t *testing.T) {
	t.Parallel()
	e := setup(t)
	data := []byte(glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"))

	first, err := e.ingest.PreviewGLImport(e.ctx, data, "utf-8")
	require.NoError(t, err)
	second, err := e.ingest.PreviewGLImport(e.ctx, data, "utf-8")
	require.NoError(t, err)

	_, err = e.ingest.CommitGLImport(e.ctx, first.Token)
	require.NoError(t, err)
	_, err = e.ingest.CommitGLImport(e.ctx, second.Token)
	require.True(t, apperr.IsKind(err, apperr.KindDuplicatePeriod))
	require.Len(t, e.gl(t, "2025-10"), 1)

	_, err = e.ingest.PreviewGLImport(e.ctx, data, "utf-8")
	require.True(t, apperr.IsKind(err, apperr.KindDuplicatePeriod))
}

func TestImportForecasts(t *testing.T) {
	t.Parallel()
	e := setup(t)
	e.project(t, "PJ-001")
	e.project(t, "PJ-002")

	data := "\ufeffprojectCode,accountingItem,accountingPeriod,description,amount\r\n" +
		`PJ-001,保守売上,2025-10,保守契約料,"50,000"` + "\r\n" +
		"PJ-404,保守売上,2025-10,不明な案件,100\r\n" +
		"PJ-002,開発売上,2025/11,期間不正,100\r\n" +
		"PJ-002,開発売上,2025-11,追加開発,1200000\r\n"

	res, err := e.ingest.ImportForecasts(e.ctx, []byte(data), "")
	require.NoError(t, err)
	require.Equal(t, charset.UTF8, res.Encoding)
	require.Equal(t, 4, res.TotalRows)
	require.Equal(t, 2, res.ImportedRows)
	require.Len(t, res.Errors, 2)
	require.Equal(t, 3, res.Errors[0].Row)
	require.Contains(t, res.Errors[0].Error(), "PJ-404")
	require.Equal(t, 4, res.Errors[1].Row)
	require.Equal(t, []string{"2025-10", "2025-11"}, res.Periods)

	list, err := e.forecasts.ListForecasts(e.ctx, repository.ForecastFilters{Period: "2025-10"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "50000", list[0].Amount.String())
	require.Equal(t, "顧客 PJ-001", list[0].CustomerName)
	require.Equal(t, "2025-10", list[0].Period)
	require.Equal(t, 1, list[0].Version)
}

func TestImportForecastsShiftJISFallback(t *testing.T) {
	t.Parallel()
	e := setup(t)
	e.project(t, "PJ-001")

	res, err := e.ingest.ImportForecasts(e.ctx, sjis(t, "PJ-001,保守売上,2025-10,保守契約料,50000\n"), "")
	require.NoError(t, err)
	require.Equal(t, charset.ShiftJIS, res.Encoding)
	require.Equal(t, 1, res.ImportedRows)
}

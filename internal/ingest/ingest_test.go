package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
)

// glLine builds a 22-column export row.
func glLine(code, name, date, desc, debit, credit string) string {
	cols := make([]string, glColumnCount)
	cols[colAccountCode] = code
	cols[colAccountName] = name
	cols[colTransactionDate] = date
	cols[colVoucherNo] = "V001"
	cols[colCounterAccountCode] = "135"
	cols[colCounterAccountName] = "売掛金"
	cols[colDescription] = desc
	cols[colDebitAmount] = debit
	cols[colCreditAmount] = credit
	cols[colBalance] = "0"
	return strings.Join(cols, ",")
}

func TestParseGL(t *testing.T) {
	t.Parallel()
	data := strings.Join([]string{
		glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0"), // debit
		glLine("511", "ﾎｼｭｳﾘｱｹﾞ", "2025/10/20", "保守 追加", "0", `"1,200"`), // credit, half-width name
		glLine("999", "雑収入", "20251015", "対象外", "100", "0"),        // not a target account
		glLine("512", "開発売上", "20251031", "ゼロ", "0", "0"),           // both zero
		glLine("513", "導入売上", "2025-10-15", "bad date", "10", "0"),  // malformed date
		"511,short,row",
	}, "\n")

	res := ParseGL(data, NewAccountSet(DefaultTargetAccounts))
	require.Equal(t, 6, res.TotalRows)
	require.Equal(t, 2, res.ImportedRows)
	require.Equal(t, 2, res.SkippedRows)
	require.Len(t, res.Errors, 2)
	require.Equal(t, 5, res.Errors[0].Row)
	require.Equal(t, 6, res.Errors[1].Row)
	require.True(t, apperr.IsKind(res.Errors[0], apperr.KindValidation))

	first := res.Entries[0]
	require.Equal(t, "2025-10-15", first.TransactionDate)
	require.Equal(t, "2025-10", first.Period)
	require.Equal(t, "50000", first.Amount.String())
	require.Equal(t, repository.Debit, first.DebitCredit)
	require.Equal(t, "保守売上", first.AccountName)
	require.Equal(t, "売掛金", first.CounterAccountName)
	require.Equal(t, 1, first.RowNumber)
	require.NotEmpty(t, first.ID)

	second := res.Entries[1]
	require.Equal(t, "2025-10-20", second.TransactionDate)
	require.Equal(t, "1200", second.Amount.String())
	require.Equal(t, repository.Credit, second.DebitCredit)
	require.Equal(t, "ホシュウリアゲ", second.AccountName)

	require.Equal(t, []string{"2025-10"}, res.Periods())
}

func TestParseGLRejectsWrongWidthRows(t *testing.T) {
	t.Parallel()
	data := strings.Join([]string{
		glLine("511", "保守売上", "20251015", "保守契約料", "50000", "0") + ",extra",
		glLine("512", "開発売上", "20251015", "追加開発", "0", "1,200,000"), // unquoted separators split the amount
		glLine("513", "導入売上", "20251015", "導入支援", "3000", "0"),
	}, "\n")

	res := ParseGL(data, NewAccountSet(DefaultTargetAccounts))
	require.Equal(t, 3, res.TotalRows)
	require.Equal(t, 1, res.ImportedRows)
	require.Len(t, res.Errors, 2)
	require.Equal(t, 1, res.Errors[0].Row)
	require.Contains(t, res.Errors[0].Error(), "got 23")
	require.Equal(t, 2, res.Errors[1].Row)
	require.Contains(t, res.Errors[1].Error(), "got 24")
	require.Equal(t, "3000", res.Entries[0].Amount.String())
}

func TestParseGLShortNonTargetRowIsSkipped(t *testing.T) {
	t.Parallel()
	res := ParseGL("999,foo,bar\n合計,,1500000", NewAccountSet(DefaultTargetAccounts))
	require.Equal(t, 2, res.TotalRows)
	require.Equal(t, 2, res.SkippedRows)
	require.Empty(t, res.Errors)
}

func TestParseGLNonTargetAccountIsSkippedNotError(t *testing.T) {
	t.Parallel()
	res := ParseGL(glLine("100", "現金", "garbage", "x", "oops", "0"), NewAccountSet(DefaultTargetAccounts))
	require.Equal(t, 1, res.SkippedRows)
	require.Empty(t, res.Errors)
	require.Empty(t, res.Entries)
}

func TestParseTransactionDate(t *testing.T) {
	t.Parallel()
	got, err := ParseTransactionDate("20251015")
	require.NoError(t, err)
	require.Equal(t, "2025-10-15", got)

	got, err = ParseTransactionDate("2025/10/05")
	require.NoError(t, err)
	require.Equal(t, "2025-10-05", got)

	for _, bad := range []string{"", "2025-10-15", "20251345", "2025/13/01", "202510"} {
		_, err := ParseTransactionDate(bad)
		require.Error(t, err, bad)
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":            "0",
		"50000":       "50000",
		"1,234,567":   "1234567",
		" ¥12,000 ":   "12000",
		"-300":        "-300",
		"1234.50":     "1234.5",
		"１，０００": "", // full-width digits are rejected
	}
	for in, want := range cases {
		d, err := ParseAmount(in)
		if want == "" {
			require.Error(t, err, in)
			continue
		}
		require.NoError(t, err, in)
		require.Equal(t, want, d.String(), in)
	}
}

func TestParseForecasts(t *testing.T) {
	t.Parallel()
	data := "\ufeffprojectCode,accountingItem,accountingPeriod,description,amount\n" +
		`PJ-001,保守売上,2025-10,保守契約料,"50,000"` + "\n" +
		`PJ-002,"開発売上, 追加",2025-11,"改修 ""A""",1200000` + "\n" +
		"PJ-003,開発売上,2025/11,bad period,100\n" +
		"PJ-004,,2025-11,missing item,100\n" +
		"PJ-005,開発売上,2025-11,bad amount,abc\n" +
		",,,,\n"

	res := ParseForecasts(data)
	require.Equal(t, 6, res.TotalRows)
	require.Equal(t, 2, res.ImportedRows)
	require.Equal(t, 1, res.SkippedRows)
	require.Len(t, res.Errors, 3)
	require.Equal(t, 4, res.Errors[0].Row)
	require.Contains(t, res.Errors[0].Error(), "YYYY-MM")
	require.Contains(t, res.Errors[1].Error(), "AccountingItem is required")

	require.Equal(t, "PJ-001", res.Rows[0].ProjectCode)
	require.Equal(t, "50000", res.Rows[0].Amount.String())
	require.Equal(t, 2, res.Rows[0].Row)
	require.Equal(t, "開発売上, 追加", res.Rows[1].AccountingItem)
	require.Equal(t, `改修 "A"`, res.Rows[1].Description)
}

func TestParseForecastsWithoutHeader(t *testing.T) {
	t.Parallel()
	res := ParseForecasts("PJ-001,保守売上,2025-10,保守契約料,50000\n")
	require.Equal(t, 1, res.TotalRows)
	require.Equal(t, 1, res.ImportedRows)
	require.Empty(t, res.Errors)
}

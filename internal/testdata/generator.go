// Package testdata generates a synthetic period of projects, forecasts and a
// GL export that reconcile against each other.
package testdata

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/jask/glrecon/internal/database/repository"
)

// Options sizes a generated dataset.
type Options struct {
	Period    string // YYYY-MM
	Projects  int
	Forecasts int
	// Noise is the number of GL rows that no forecast accounts for.
	Noise int
	Seed  uint64
}

// Dataset is one generated period. Forecasts and GL are UTF-8 CSV files in
// the import formats.
type Dataset struct {
	Projects  []repository.Project
	Forecasts []byte
	GL        []byte
}

type account struct{ code, name string }

var accounts = []account{
	{"511", "保守売上"},
	{"512", "開発売上"},
	{"513", "ライセンス売上"},
	{"541", "外注費"},
	{"727", "支払手数料"},
}

var descriptions = []string{
	"保守契約料", "月額利用料", "追加開発", "ライセンス更新", "導入支援", "運用代行", "サーバ費用", "コンサルティング",
}

// Generate builds a dataset in which every forecast has exactly one GL row
// that matches it strictly. Amounts are distinct per forecast, so the
// expected run result does not depend on input order.
func Generate(opts Options) Dataset {
	if opts.Projects <= 0 {
		opts.Projects = 1
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var ds Dataset
	for i := range opts.Projects {
		ds.Projects = append(ds.Projects, repository.Project{
			Code:         fmt.Sprintf("PJ-%03d", i+1),
			Name:         fmt.Sprintf("案件%03d", i+1),
			CustomerCode: fmt.Sprintf("C%04d", rng.IntN(10000)),
			CustomerName: fmt.Sprintf("顧客%03d", i+1),
		})
	}

	var fc, gl bytes.Buffer
	fw, gw := csv.NewWriter(&fc), csv.NewWriter(&gl)
	_ = fw.Write([]string{"projectCode", "accountingItem", "accountingPeriod", "description", "amount"})

	day := func() string { return fmt.Sprintf("%s%02d", compact(opts.Period), rng.IntN(28)+1) }
	row := 0
	for i := range opts.Forecasts {
		acct := accounts[rng.IntN(len(accounts))]
		desc := fmt.Sprintf("%s %d", descriptions[rng.IntN(len(descriptions))], i+1)
		amount := decimal.NewFromInt(int64(10000 + i*1000))
		p := ds.Projects[rng.IntN(len(ds.Projects))]

		_ = fw.Write([]string{p.Code, acct.name, opts.Period, desc, amount.String()})
		row++
		_ = gw.Write(glRecord(acct, day(), fmt.Sprintf("V%05d", row), desc, amount))
	}
	for range opts.Noise {
		acct := accounts[rng.IntN(len(accounts))]
		row++
		// Fractional amounts never collide with the whole-yen forecast amounts.
		amount := decimal.NewFromInt(int64(rng.IntN(90000) + 1000)).Add(decimal.RequireFromString("0.5"))
		_ = gw.Write(glRecord(acct, day(), fmt.Sprintf("V%05d", row), "雑収入", amount))
	}
	fw.Flush()
	gw.Flush()

	ds.Forecasts = fc.Bytes()
	ds.GL = gl.Bytes()
	return ds
}

func glRecord(a account, date, voucher, desc string, amount decimal.Decimal) []string {
	rec := make([]string, 22)
	rec[0] = a.code
	rec[1] = a.name
	rec[6] = date
	rec[7] = voucher
	rec[8] = "135"
	rec[9] = "売掛金"
	rec[14] = desc
	rec[17] = amount.String()
	rec[19] = "0"
	return rec
}

func compact(period string) string {
	if len(period) == 7 {
		return period[:4] + period[5:]
	}
	return period
}

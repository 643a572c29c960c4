package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/httpapi"
	"github.com/jask/glrecon/internal/period"
	"github.com/jask/glrecon/internal/testdata"
)

// Commands lists every subcommand in help order.
var Commands = []subcommands.Command{
	&migrateCmd{},
	&projectCmd{},
	&importGLCmd{},
	&importForecastsCmd{},
	&reconcileCmd{},
	&matchCmd{},
	&unmatchCmd{},
	&excludeCmd{},
	&deletePeriodCmd{},
	&suggestCmd{},
	&logsCmd{},
	&seedDemoCmd{},
	&serveCmd{},
}

// withApp opens the database and services, runs fn and reports its error.
func withApp(ctx context.Context, fn func(a *app) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		return subcommands.ExitFailure
	}
	defer a.Close()
	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		if apperr.IsKind(err, apperr.KindValidation) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func oneArg(f *flag.FlagSet, what string) (string, error) {
	if f.NArg() != 1 {
		return "", apperr.Validation("expected exactly one %s", what)
	}
	return f.Arg(0), nil
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or upgrade the database schema" }
func (*migrateCmd) Usage() string {
	return `glrecon migrate

  Applies pending schema migrations to the configured database.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		fmt.Println(okStyle.Render("database ready: ") + valueStyle.Render(a.cfg.Database.Path))
		return nil
	})
}

type projectCmd struct {
	code, name, customerCode, customerName string
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "create or update a project" }
func (*projectCmd) Usage() string {
	return `glrecon project -code <code> -name <name> [-customer-code <c>] [-customer-name <n>]
`
}

func (p *projectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.code, "code", "", "Project code referenced by forecast files.")
	f.StringVar(&p.name, "name", "", "Project name.")
	f.StringVar(&p.customerCode, "customer-code", "", "Customer code.")
	f.StringVar(&p.customerName, "customer-name", "", "Customer name.")
}

func (p *projectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		got, err := a.svc.Forecasts.UpsertProject(ctx, repository.Project{
			Code:         p.code,
			Name:         p.name,
			CustomerCode: p.customerCode,
			CustomerName: p.customerName,
		})
		if err != nil {
			return err
		}
		fmt.Println(kv("project", got.Code) + "  " + valueStyle.Render(got.ID))
		return nil
	})
}

type importGLCmd struct {
	encoding string
	dryRun   bool
}

func (*importGLCmd) Name() string     { return "import-gl" }
func (*importGLCmd) Synopsis() string { return "load a general ledger CSV export" }
func (*importGLCmd) Usage() string {
	return `glrecon import-gl [-encoding <name>] [-dry-run] <file|->

  Loads a 22-column GL export. Only configured target accounts are kept.
  The import is refused when any period in the file already has entries.
`
}

func (p *importGLCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.encoding, "encoding", "", "Source encoding (auto, utf-8, shift_jis, euc-jp). Defaults to the configured encoding.")
	f.BoolVar(&p.dryRun, "dry-run", false, "Parse and validate without writing.")
}

func (p *importGLCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		path, err := oneArg(f, "file")
		if err != nil {
			return err
		}
		data, err := readInput(path)
		if err != nil {
			return err
		}
		if p.dryRun {
			pv, err := a.svc.Ingest.PreviewGLImport(ctx, data, p.encoding)
			if err != nil {
				return err
			}
			a.svc.Ingest.DiscardGLImport(pv.Token)
			fmt.Println(renderImport("GL (dry run)", pv.Result))
			return nil
		}
		res, err := a.svc.Ingest.ImportGL(ctx, data, p.encoding)
		if err != nil {
			return err
		}
		fmt.Println(renderImport("GL", res))
		return nil
	})
}

type importForecastsCmd struct {
	encoding string
}

func (*importForecastsCmd) Name() string     { return "import-forecasts" }
func (*importForecastsCmd) Synopsis() string { return "load an order forecast CSV file" }
func (*importForecastsCmd) Usage() string {
	return `glrecon import-forecasts [-encoding <name>] <file|->

  Loads a 5-column forecast file: project code, accounting item,
  period, description, amount. Projects must already exist.
`
}

func (p *importForecastsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.encoding, "encoding", "", "Source encoding. Detected when empty.")
}

func (p *importForecastsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		path, err := oneArg(f, "file")
		if err != nil {
			return err
		}
		data, err := readInput(path)
		if err != nil {
			return err
		}
		res, err := a.svc.Ingest.ImportForecasts(ctx, data, p.encoding)
		if err != nil {
			return err
		}
		fmt.Println(renderImport("Forecast", res))
		return nil
	})
}

type reconcileCmd struct{}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "match a period's forecasts against its GL entries" }
func (*reconcileCmd) Usage() string {
	return `glrecon reconcile <YYYY-MM>
`
}
func (*reconcileCmd) SetFlags(*flag.FlagSet) {}

func (*reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		month, err := oneArg(f, "period")
		if err != nil {
			return err
		}
		sum, err := a.svc.Reconciler.ExecuteReconciliation(ctx, month)
		if err != nil {
			return err
		}
		fmt.Println(renderRun(sum))
		return nil
	})
}

// pairFlags are shared by match and unmatch.
type pairFlags struct {
	gl, order string
}

func (p *pairFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.gl, "gl", "", "GL entry id.")
	f.StringVar(&p.order, "order", "", "Order forecast id.")
}

func (p *pairFlags) check() error {
	if p.gl == "" || p.order == "" {
		return apperr.Validation("both -gl and -order are required")
	}
	return nil
}

type matchCmd struct{ pairFlags }

func (*matchCmd) Name() string     { return "match" }
func (*matchCmd) Synopsis() string { return "manually match a GL entry to a forecast" }
func (*matchCmd) Usage() string {
	return `glrecon match -gl <id> -order <id>
`
}

func (p *matchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		if err := p.check(); err != nil {
			return err
		}
		if err := a.svc.Reconciler.ManualReconcile(ctx, p.gl, p.order); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("matched"))
		return nil
	})
}

type unmatchCmd struct{ pairFlags }

func (*unmatchCmd) Name() string     { return "unmatch" }
func (*unmatchCmd) Synopsis() string { return "release a matched GL entry and forecast" }
func (*unmatchCmd) Usage() string {
	return `glrecon unmatch -gl <id> -order <id>
`
}

func (p *unmatchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		if err := p.check(); err != nil {
			return err
		}
		if err := a.svc.Reconciler.UnmatchReconciliation(ctx, p.gl, p.order); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("unmatched"))
		return nil
	})
}

type excludeCmd struct {
	kind    string
	reason  string
	include bool
}

func (*excludeCmd) Name() string     { return "exclude" }
func (*excludeCmd) Synopsis() string { return "exclude records from reconciliation, or include them again" }
func (*excludeCmd) Usage() string {
	return `glrecon exclude -kind gl|forecast [-reason <text>] [-include] <id>...

  Excluding a matched record releases its partner.
`
}

func (p *excludeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.kind, "kind", "gl", "Record kind: gl or forecast.")
	f.StringVar(&p.reason, "reason", "", "Reason stored with the exclusion.")
	f.BoolVar(&p.include, "include", false, "Clear the exclusion instead of setting it.")
}

func (p *excludeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		if f.NArg() == 0 {
			return apperr.Validation("at least one id is required")
		}
		var (
			n   int
			err error
		)
		switch p.kind {
		case "gl":
			n, err = a.svc.Reconciler.SetGLExclusion(ctx, f.Args(), !p.include, p.reason)
		case "forecast":
			n, err = a.svc.Reconciler.SetForecastExclusion(ctx, f.Args(), !p.include, p.reason)
		default:
			return apperr.Validation("unknown kind %q", p.kind)
		}
		if err != nil {
			return err
		}
		fmt.Println(kv("updated", n))
		return nil
	})
}

type deletePeriodCmd struct {
	kind string
}

func (*deletePeriodCmd) Name() string     { return "delete-period" }
func (*deletePeriodCmd) Synopsis() string { return "delete every GL entry or forecast of a period" }
func (*deletePeriodCmd) Usage() string {
	return `glrecon delete-period -kind gl|forecast <YYYY-MM>

  Partners matched to deleted records are released.
`
}

func (p *deletePeriodCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.kind, "kind", "gl", "Record kind: gl or forecast.")
}

func (p *deletePeriodCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		month, err := oneArg(f, "period")
		if err != nil {
			return err
		}
		var n int64
		switch p.kind {
		case "gl":
			n, err = a.svc.Maintenance.DeleteGLByPeriod(ctx, month)
		case "forecast":
			n, err = a.svc.Maintenance.DeleteForecastsByPeriod(ctx, month)
		default:
			return apperr.Validation("unknown kind %q", p.kind)
		}
		if err != nil {
			return err
		}
		fmt.Println(kv("deleted", n))
		return nil
	})
}

type suggestCmd struct {
	order string
	limit int
}

func (*suggestCmd) Name() string     { return "suggest" }
func (*suggestCmd) Synopsis() string { return "list GL entries that could match an open forecast" }
func (*suggestCmd) Usage() string {
	return `glrecon suggest -order <id> [-limit <n>]
`
}

func (p *suggestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.order, "order", "", "Order forecast id.")
	f.IntVar(&p.limit, "limit", 5, "Maximum number of candidates.")
}

func (p *suggestCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		if p.order == "" {
			return apperr.Validation("-order is required")
		}
		cs, err := a.svc.Reconciler.SuggestCandidates(ctx, p.order, p.limit)
		if err != nil {
			return err
		}
		fmt.Println(renderCandidates(cs))
		return nil
	})
}

type logsCmd struct {
	period string
}

func (*logsCmd) Name() string     { return "logs" }
func (*logsCmd) Synopsis() string { return "list reconciliation runs, newest first" }
func (*logsCmd) Usage() string {
	return `glrecon logs [-period <YYYY-MM>]
`
}

func (p *logsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.period, "period", "", "Only runs for this period.")
}

func (p *logsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		logs, err := a.svc.Reconciler.ListReconciliationLogs(ctx, p.period)
		if err != nil {
			return err
		}
		fmt.Println(renderLogs(logs))
		return nil
	})
}

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the reconciliation API over HTTP" }
func (*serveCmd) Usage() string {
	return `glrecon serve [-addr <host:port>]
`
}

func (p *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.addr, "addr", "", "Listen address. Defaults to the configured server.addr.")
}

func (p *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		addr := a.cfg.Server.Addr
		if p.addr != "" {
			addr = p.addr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewServer(a.svc, a.log, a.cfg.Server.Production).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		serverErrCh := make(chan error, 1)
		go func() {
			serverErrCh <- srv.ListenAndServe()
		}()
		a.log.WithFields(logrus.Fields{"module": "serve", "addr": addr}).Info("listening")

		select {
		case <-sigCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-serverErrCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})
}

type seedDemoCmd struct {
	period    string
	forecasts int
	noise     int
	seed      uint64
}

func (*seedDemoCmd) Name() string     { return "seed-demo" }
func (*seedDemoCmd) Synopsis() string { return "load a generated period of sample projects, forecasts and GL entries" }
func (*seedDemoCmd) Usage() string {
	return `glrecon seed-demo [-period <YYYY-MM>] [-forecasts <n>] [-noise <n>] [-seed <n>]
`
}

func (p *seedDemoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.period, "period", time.Now().Format("2006-01"), "Period to generate.")
	f.IntVar(&p.forecasts, "forecasts", 20, "Number of forecasts, each with one matching GL row.")
	f.IntVar(&p.noise, "noise", 5, "Number of extra GL rows no forecast accounts for.")
	f.Uint64Var(&p.seed, "seed", 1, "Random seed.")
}

func (p *seedDemoCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) error {
		if err := period.Check(p.period); err != nil {
			return err
		}
		ds := testdata.Generate(testdata.Options{Period: p.period, Projects: 3, Forecasts: p.forecasts, Noise: p.noise, Seed: p.seed})
		for _, pr := range ds.Projects {
			if _, err := a.svc.Forecasts.UpsertProject(ctx, pr); err != nil {
				return err
			}
		}
		fres, err := a.svc.Ingest.ImportForecasts(ctx, ds.Forecasts, "utf-8")
		if err != nil {
			return err
		}
		fmt.Println(renderImport("Forecast", fres))
		gres, err := a.svc.Ingest.ImportGL(ctx, ds.GL, "utf-8")
		if err != nil {
			return err
		}
		fmt.Println(renderImport("GL", gres))
		return nil
	})
}

package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/cache"
	"github.com/jask/glrecon/internal/charset"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/ingest"
	"github.com/jask/glrecon/internal/logging"
)

const defaultPreviewTTL = 15 * time.Minute

// IngestService loads GL exports and forecast files.
type IngestService struct {
	Store   Store
	Targets ingest.AccountSet
	// DefaultEncoding applies when a GL upload names none. Empty or "auto" detects.
	DefaultEncoding string
	Log             logrus.FieldLogger

	previews *cache.TTLStore[string, glPreview]
}

// NewIngestService returns a service with the default account allow-list when
// targets is empty.
func NewIngestService(store Store, targets []string, defaultEncoding string, previewTTL time.Duration, log logrus.FieldLogger) *IngestService {
	if len(targets) == 0 {
		targets = ingest.DefaultTargetAccounts
	}
	if previewTTL <= 0 {
		previewTTL = defaultPreviewTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &IngestService{
		Store:           store,
		Targets:         ingest.NewAccountSet(targets),
		DefaultEncoding: defaultEncoding,
		Log:             log,
		previews:        cache.New[string, glPreview](previewTTL, nil),
	}
}

// ImportResult summarizes one file load.
type ImportResult struct {
	Encoding     string
	TotalRows    int
	ImportedRows int
	SkippedRows  int
	Errors       []ingest.RowError
	Periods      []string
}

type glPreview struct {
	result  ImportResult
	entries []repository.GLEntry
}

// GLPreview is a parsed, validated GL file held until CommitGLImport.
type GLPreview struct {
	Token  string
	Result ImportResult
	// Sample holds the first accepted entries for display.
	Sample []repository.GLEntry
}

const previewSampleSize = 20

// ImportGL decodes, parses and stores a GL export. Row problems are reported in
// the result. The import is rejected with DuplicatePeriod before anything is
// written when any period in the file already has entries; otherwise every
// accepted row is inserted in one transaction.
func (s *IngestService) ImportGL(ctx context.Context, data []byte, encoding string) (ImportResult, error) {
	res, entries, err := s.parseGL(data, encoding)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.commitGL(ctx, entries); err != nil {
		return ImportResult{}, err
	}
	s.logImport("gl", res)
	return res, nil
}

// PreviewGLImport parses a GL export without writing it. The returned token
// commits the parsed rows until it expires.
func (s *IngestService) PreviewGLImport(ctx context.Context, data []byte, encoding string) (GLPreview, error) {
	res, entries, err := s.parseGL(data, encoding)
	if err != nil {
		return GLPreview{}, err
	}
	if err := s.checkPeriods(ctx, s.Store.Read(), res.Periods); err != nil {
		return GLPreview{}, internal("check periods", err)
	}
	s.previews.Evict()
	token := uuid.NewString()
	s.previews.Put(token, glPreview{result: res, entries: entries})

	sample := entries
	if len(sample) > previewSampleSize {
		sample = sample[:previewSampleSize]
	}
	return GLPreview{Token: token, Result: res, Sample: sample}, nil
}

// CommitGLImport stores a previewed file. The duplicate-period check runs again
// since entries may have arrived after the preview. A token is single use.
func (s *IngestService) CommitGLImport(ctx context.Context, token string) (ImportResult, error) {
	p, ok := s.previews.Take(token)
	if !ok {
		return ImportResult{}, apperr.NotFound("import preview", token)
	}
	if err := s.commitGL(ctx, p.entries); err != nil {
		return ImportResult{}, err
	}
	s.logImport("gl", p.result)
	return p.result, nil
}

// DiscardGLImport drops a preview without storing it.
func (s *IngestService) DiscardGLImport(token string) {
	s.previews.Delete(token)
}

func (s *IngestService) parseGL(data []byte, encoding string) (ImportResult, []repository.GLEntry, error) {
	if encoding == "" {
		encoding = s.DefaultEncoding
	}
	dec, err := charset.Decode(data, encoding)
	if err != nil {
		return ImportResult{}, nil, err
	}
	parsed := ingest.ParseGL(dec.Text, s.Targets)
	res := ImportResult{
		Encoding:     dec.Encoding,
		TotalRows:    parsed.TotalRows,
		ImportedRows: parsed.ImportedRows,
		SkippedRows:  parsed.SkippedRows,
		Errors:       parsed.Errors,
		Periods:      parsed.Periods(),
	}
	return res, parsed.Entries, nil
}

func (s *IngestService) commitGL(ctx context.Context, entries []repository.GLEntry) error {
	if len(entries) == 0 {
		return nil
	}
	periods := ingest.GLResult{Entries: entries}.Periods()
	err := s.Store.InTx(ctx, func(tx repository.Repos) error {
		if err := s.checkPeriods(ctx, tx, periods); err != nil {
			return err
		}
		return tx.GL.InsertBatch(ctx, entries)
	})
	return internal("import gl entries", err)
}

func (s *IngestService) checkPeriods(ctx context.Context, repos repository.Repos, periods []string) error {
	for _, p := range periods {
		n, err := repos.GL.CountByPeriod(ctx, p)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.DuplicatePeriod(p)
		}
	}
	return nil
}

// ImportForecasts loads a 5-column forecast file. A UTF-8 file (with or
// without BOM) is read as is; anything else is detected unless encoding is
// given. Rows naming an unknown project code are row errors. Valid rows are
// inserted in one transaction.
func (s *IngestService) ImportForecasts(ctx context.Context, data []byte, encoding string) (ImportResult, error) {
	dec, err := charset.Decode(data, encoding)
	if err != nil {
		return ImportResult{}, err
	}
	parsed := ingest.ParseForecasts(dec.Text)
	res := ImportResult{
		Encoding:    dec.Encoding,
		TotalRows:   parsed.TotalRows,
		SkippedRows: parsed.SkippedRows,
		Errors:      parsed.Errors,
	}

	err = s.Store.InTx(ctx, func(tx repository.Repos) error {
		projects := map[string]*repository.Project{}
		seen := map[string]bool{}
		for _, row := range parsed.Rows {
			p, ok := projects[row.ProjectCode]
			if !ok {
				var err error
				p, err = tx.Projects.ByCode(ctx, row.ProjectCode)
				if err != nil {
					return err
				}
				projects[row.ProjectCode] = p
			}
			if p == nil {
				res.Errors = append(res.Errors, ingest.RowError{
					Row: row.Row,
					Err: apperr.Validation("unknown project code %q", row.ProjectCode),
				})
				continue
			}
			f := forecastFromRow(row, *p)
			if err := tx.Forecasts.Insert(ctx, f); err != nil {
				return err
			}
			res.ImportedRows++
			if !seen[f.Period] {
				seen[f.Period] = true
				res.Periods = append(res.Periods, f.Period)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, internal("import forecasts", err)
	}
	sortRowErrors(res.Errors)
	s.logImport("forecast", res)
	return res, nil
}

func forecastFromRow(row ingest.ForecastRow, p repository.Project) repository.OrderForecast {
	return repository.OrderForecast{
		ID:               uuid.NewString(),
		ProjectID:        repository.Some(p.ID),
		ProjectCode:      p.Code,
		ProjectName:      p.Name,
		CustomerCode:     p.CustomerCode,
		CustomerName:     p.CustomerName,
		AccountingPeriod: row.AccountingPeriod,
		AccountingItem:   row.AccountingItem,
		Description:      row.Description,
		Amount:           row.Amount,
		Status:           repository.StatusUnmatched,
		Period:           row.AccountingPeriod,
	}
}

func sortRowErrors(errs []ingest.RowError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Row < errs[j].Row })
}

func (s *IngestService) logImport(kind string, res ImportResult) {
	s.Log.WithFields(logrus.Fields{
		"module":   "ingest",
		"kind":     kind,
		"encoding": res.Encoding,
		"total":    res.TotalRows,
		"imported": res.ImportedRows,
		"skipped":  res.SkippedRows,
		"errors":   len(res.Errors),
	}).Info("import complete")
}

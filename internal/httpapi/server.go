// Package httpapi exposes the reconciliation services over HTTP.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/service"
)

// Services are the handlers' dependencies.
type Services struct {
	Reconciler  *service.Reconciler
	Ingest      *service.IngestService
	Forecasts   *service.ForecastService
	Maintenance *service.MaintenanceService
}

// Server holds the HTTP handlers.
type Server struct {
	svc        Services
	log        logrus.FieldLogger
	production bool
}

func NewServer(svc Services, log logrus.FieldLogger, production bool) *Server {
	return &Server{svc: svc, log: log, production: production}
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/gl", func(r chi.Router) {
			r.Get("/", s.handleListGL)
			r.Post("/import", s.handleImportGL)
			r.Post("/import/preview", s.handlePreviewGL)
			r.Post("/import/{token}/commit", s.handleCommitGL)
			r.Delete("/import/{token}", s.handleDiscardGL)
			r.Post("/exclusion", s.handleGLExclusion)
			r.Delete("/periods/{period}", s.handleDeleteGLPeriod)
			r.Delete("/{id}", s.handleDeleteGL)
		})
		r.Route("/forecasts", func(r chi.Router) {
			r.Get("/", s.handleListForecasts)
			r.Post("/", s.handleCreateForecast)
			r.Post("/import", s.handleImportForecasts)
			r.Post("/exclusion", s.handleForecastExclusion)
			r.Delete("/periods/{period}", s.handleDeleteForecastPeriod)
			r.Put("/{id}", s.handleUpdateForecast)
			r.Delete("/{id}", s.handleDeleteForecast)
			r.Get("/{id}/candidates", s.handleCandidates)
		})
		r.Post("/projects", s.handleUpsertProject)
		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/run", s.handleRun)
			r.Post("/match", s.handleMatch)
			r.Post("/unmatch", s.handleUnmatch)
			r.Get("/logs", s.handleListLogs)
			r.Get("/logs/{id}", s.handleGetLog)
		})
	})
}

// POST /api/gl/import?encoding=shift_jis
func (s *Server) handleImportGL(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Ingest.ImportGL(r.Context(), data, r.URL.Query().Get("encoding"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusCreated, toImportView(res))
}

func (s *Server) handlePreviewGL(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pv, err := s.svc.Ingest.PreviewGLImport(r.Context(), data, r.URL.Query().Get("encoding"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sample := make([]glView, 0, len(pv.Sample))
	for _, g := range pv.Sample {
		sample = append(sample, toGLView(g))
	}
	writeJSON(w, s.log, http.StatusOK, struct {
		Token  string     `json:"token"`
		Result importView `json:"result"`
		Sample []glView   `json:"sample"`
	}{pv.Token, toImportView(pv.Result), sample})
}

func (s *Server) handleCommitGL(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Ingest.CommitGLImport(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusCreated, toImportView(res))
}

func (s *Server) handleDiscardGL(w http.ResponseWriter, r *http.Request) {
	s.svc.Ingest.DiscardGLImport(chi.URLParam(r, "token"))
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/gl?period=2025-10
func (s *Server) handleListGL(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		s.writeError(w, r, apperr.Validation("period is required"))
		return
	}
	entries, err := s.svc.Reconciler.ListGLEntries(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]glView, 0, len(entries))
	for _, g := range entries {
		out = append(out, toGLView(g))
	}
	writeJSON(w, s.log, http.StatusOK, out)
}

type exclusionRequest struct {
	IDs        []string `json:"ids"`
	IsExcluded bool     `json:"isExcluded"`
	Reason     string   `json:"reason"`
}

func (s *Server) handleGLExclusion(w http.ResponseWriter, r *http.Request) {
	var req exclusionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.svc.Reconciler.SetGLExclusion(r.Context(), req.IDs, req.IsExcluded, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleForecastExclusion(w http.ResponseWriter, r *http.Request) {
	var req exclusionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.svc.Reconciler.SetForecastExclusion(r.Context(), req.IDs, req.IsExcluded, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleDeleteGLPeriod(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Maintenance.DeleteGLByPeriod(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleDeleteGL(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Maintenance.DeleteGLEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/forecasts?period=2025-10&status=unmatched
func (s *Server) handleListForecasts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.svc.Forecasts.ListForecasts(r.Context(), repository.ForecastFilters{
		Period:    q.Get("period"),
		Status:    repository.Status(q.Get("status")),
		ProjectID: q.Get("projectId"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]forecastView, 0, len(list))
	for _, f := range list {
		out = append(out, toForecastView(f))
	}
	writeJSON(w, s.log, http.StatusOK, out)
}

type forecastRequest struct {
	Version          int             `json:"version"`
	ProjectCode      string          `json:"projectCode"`
	AccountingItem   string          `json:"accountingItem"`
	AccountingPeriod string          `json:"accountingPeriod"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
}

func (req forecastRequest) input() service.ForecastInput {
	return service.ForecastInput{
		ProjectCode:      req.ProjectCode,
		AccountingItem:   req.AccountingItem,
		AccountingPeriod: req.AccountingPeriod,
		Description:      req.Description,
		Amount:           req.Amount,
	}
}

func (s *Server) handleCreateForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.Forecasts.CreateForecast(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusCreated, toForecastView(*f))
}

func (s *Server) handleUpdateForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.Forecasts.UpdateForecast(r.Context(), chi.URLParam(r, "id"), req.Version, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, toForecastView(*f))
}

func (s *Server) handleDeleteForecast(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Forecasts.DeleteForecast(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteForecastPeriod(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Maintenance.DeleteForecastsByPeriod(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleImportForecasts(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Ingest.ImportForecasts(r.Context(), data, r.URL.Query().Get("encoding"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusCreated, toImportView(res))
}

// GET /api/forecasts/{id}/candidates?limit=5
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	got, err := s.svc.Reconciler.SuggestCandidates(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 5))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]candidateView, 0, len(got))
	for _, c := range got {
		out = append(out, candidateView{Entry: toGLView(c.Entry), Similarity: c.Similarity, AccountMatches: c.AccountMatches})
	}
	writeJSON(w, s.log, http.StatusOK, out)
}

func (s *Server) handleUpsertProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         string `json:"code"`
		Name         string `json:"name"`
		CustomerCode string `json:"customerCode"`
		CustomerName string `json:"customerName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Forecasts.UpsertProject(r.Context(), repository.Project{
		Code:         req.Code,
		Name:         req.Name,
		CustomerCode: req.CustomerCode,
		CustomerName: req.CustomerName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]string{"id": p.ID, "code": p.Code, "name": p.Name})
}

// POST /api/reconciliation/run {"period":"2025-10"}
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period string `json:"period"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.svc.Reconciler.ExecuteReconciliation(r.Context(), strings.TrimSpace(req.Period))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, toRunView(sum))
}

type pairRequest struct {
	GLEntryID       string `json:"glEntryId"`
	OrderForecastID string `json:"orderForecastId"`
}

func (req pairRequest) check() error {
	if req.GLEntryID == "" || req.OrderForecastID == "" {
		return apperr.Validation("glEntryId and orderForecastId are required")
	}
	return nil
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.check(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Reconciler.ManualReconcile(r.Context(), req.GLEntryID, req.OrderForecastID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnmatch(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.check(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Reconciler.UnmatchReconciliation(r.Context(), req.GLEntryID, req.OrderForecastID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.svc.Reconciler.ListReconciliationLogs(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]logView, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogView(l))
	}
	writeJSON(w, s.log, http.StatusOK, out)
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Reconciler.GetReconciliationLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.log, http.StatusOK, toLogView(*l))
}

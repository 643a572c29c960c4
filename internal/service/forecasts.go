package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/ingest"
)

// ForecastService manages individual forecasts and projects.
type ForecastService struct {
	Store Store
}

// ForecastInput is the editable content of a forecast.
type ForecastInput struct {
	ProjectCode      string
	AccountingItem   string
	AccountingPeriod string
	Description      string
	Amount           decimal.Decimal
}

func (in ForecastInput) validate() error {
	return ingest.ValidateForecast(ingest.ForecastRow{
		ProjectCode:      strings.TrimSpace(in.ProjectCode),
		AccountingItem:   strings.TrimSpace(in.AccountingItem),
		AccountingPeriod: strings.TrimSpace(in.AccountingPeriod),
		Description:      strings.TrimSpace(in.Description),
		Amount:           in.Amount,
	})
}

// CreateForecast stores a new unmatched forecast.
func (s *ForecastService) CreateForecast(ctx context.Context, in ForecastInput) (*repository.OrderForecast, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	err := s.Store.InTx(ctx, func(tx repository.Repos) error {
		p, err := projectByCode(ctx, tx, in.ProjectCode)
		if err != nil {
			return err
		}
		f := repository.OrderForecast{ID: id, Status: repository.StatusUnmatched}
		applyInput(&f, in, *p)
		return tx.Forecasts.Insert(ctx, f)
	})
	if err != nil {
		return nil, internal("create forecast", err)
	}
	return s.get(ctx, id)
}

// UpdateForecast rewrites a forecast if version is still current. A matched
// forecast keeps its matching fields; changing them requires an unmatch first.
func (s *ForecastService) UpdateForecast(ctx context.Context, id string, version int, in ForecastInput) (*repository.OrderForecast, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := s.Store.InTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.Forecasts.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return apperr.NotFound("forecast", id)
		}
		if cur.Version != version {
			return apperr.Conflict("forecast %s was modified (version %d, have %d)", id, cur.Version, version)
		}
		if cur.GLMatchID.Valid && matchFieldsChanged(*cur, in) {
			return apperr.Conflict("forecast %s is matched; unmatch it before changing period, item, description or amount", id)
		}
		p, err := projectByCode(ctx, tx, in.ProjectCode)
		if err != nil {
			return err
		}
		next := *cur
		applyInput(&next, in, *p)
		ok, err := tx.Forecasts.UpdateContent(ctx, next)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("forecast %s was modified concurrently", id)
		}
		return nil
	})
	if err != nil {
		return nil, internal("update forecast", err)
	}
	return s.get(ctx, id)
}

// DeleteForecast removes an unmatched forecast.
func (s *ForecastService) DeleteForecast(ctx context.Context, id string) error {
	err := s.Store.InTx(ctx, func(tx repository.Repos) error {
		f, err := tx.Forecasts.Get(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return apperr.NotFound("forecast", id)
		}
		if f.GLMatchID.Valid {
			return apperr.Conflict("forecast %s is matched to gl entry %s", id, f.GLMatchID.V)
		}
		return tx.Forecasts.Delete(ctx, id)
	})
	return internal("delete forecast", err)
}

// ListForecasts returns forecasts in load order.
func (s *ForecastService) ListForecasts(ctx context.Context, f repository.ForecastFilters) ([]repository.OrderForecast, error) {
	out, err := s.Store.Read().Forecasts.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("list forecasts", err)
	}
	return out, nil
}

// UpsertProject creates or updates a project by code.
func (s *ForecastService) UpsertProject(ctx context.Context, p repository.Project) (*repository.Project, error) {
	p.Code = strings.TrimSpace(p.Code)
	if p.Code == "" {
		return nil, apperr.Validation("project code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperr.Validation("project name is required")
	}
	var out *repository.Project
	err := s.Store.InTx(ctx, func(tx repository.Repos) error {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := tx.Projects.Upsert(ctx, p); err != nil {
			return err
		}
		var err error
		out, err = tx.Projects.ByCode(ctx, p.Code)
		return err
	})
	if err != nil {
		return nil, internal("upsert project", err)
	}
	return out, nil
}

func (s *ForecastService) get(ctx context.Context, id string) (*repository.OrderForecast, error) {
	f, err := s.Store.Read().Forecasts.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal("get forecast", err)
	}
	if f == nil {
		return nil, apperr.NotFound("forecast", id)
	}
	return f, nil
}

func projectByCode(ctx context.Context, tx repository.Repos, code string) (*repository.Project, error) {
	code = strings.TrimSpace(code)
	p, err := tx.Projects.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.Validation("unknown project code %q", code)
	}
	return p, nil
}

func applyInput(f *repository.OrderForecast, in ForecastInput, p repository.Project) {
	f.ProjectID = repository.Some(p.ID)
	f.ProjectCode = p.Code
	f.ProjectName = p.Name
	f.CustomerCode = p.CustomerCode
	f.CustomerName = p.CustomerName
	f.AccountingPeriod = strings.TrimSpace(in.AccountingPeriod)
	f.AccountingItem = strings.TrimSpace(in.AccountingItem)
	f.Description = strings.TrimSpace(in.Description)
	f.Amount = in.Amount
	f.Period = f.AccountingPeriod
}

func matchFieldsChanged(cur repository.OrderForecast, in ForecastInput) bool {
	return cur.AccountingPeriod != strings.TrimSpace(in.AccountingPeriod) ||
		cur.AccountingItem != strings.TrimSpace(in.AccountingItem) ||
		cur.Description != strings.TrimSpace(in.Description) ||
		!cur.Amount.Equal(in.Amount)
}

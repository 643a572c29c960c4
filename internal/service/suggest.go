package service

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/jask/glrecon/internal/apperr"
	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/textnorm"
)

const defaultSuggestLimit = 5

// Candidate is a GL entry offered for manual review against a forecast.
type Candidate struct {
	Entry          repository.GLEntry
	Similarity     float64 // 1 = identical normalized descriptions
	AccountMatches bool
}

// SuggestCandidates ranks the open GL entries of the forecast's period that
// carry the same amount, by description similarity. Nothing is written;
// a chosen candidate is confirmed through ManualReconcile.
func (r *Reconciler) SuggestCandidates(ctx context.Context, orderID string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	repos := r.Store.Read()
	o, err := repos.Forecasts.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("get forecast", err)
	}
	if o == nil {
		return nil, apperr.NotFound("forecast", orderID)
	}
	if !o.Open() {
		return nil, apperr.Conflict("forecast %s is %s", o.ID, o.Status)
	}
	entries, err := repos.GL.ListByPeriod(ctx, o.Period)
	if err != nil {
		return nil, apperr.Internal("list gl entries", err)
	}

	desc := textnorm.Normalize(o.Description)
	item := textnorm.Normalize(o.AccountingItem)
	var out []Candidate
	for _, g := range entries {
		if !g.Open() || !g.Amount.Equal(o.Amount) {
			continue
		}
		out = append(out, Candidate{
			Entry:          g,
			Similarity:     similarity(desc, textnorm.Normalize(g.Description)),
			AccountMatches: item == textnorm.Normalize(g.AccountName),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].AccountMatches && !out[j].AccountMatches
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func similarity(a, b string) float64 {
	maxlen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxlen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxlen)
}

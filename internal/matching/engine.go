// Package matching pairs order forecasts with the GL entries that realized them.
//
// Strict mode accepts a pair only when the month, the normalized account
// name, the normalized description and the exact amount agree. The GL side is
// held in a pool whose entries can be taken at most once per pass; each
// forecast, in input order, takes the first still-available entry that
// qualifies.
package matching

import (
	"github.com/shopspring/decimal"

	"github.com/jask/glrecon/internal/database/repository"
	"github.com/jask/glrecon/internal/period"
	"github.com/jask/glrecon/internal/textnorm"
)

// ScoreExact is the score of every strict match. Strict mode has no partial credit.
const ScoreExact = 100

// Pair is one accepted forecast/GL pairing.
type Pair struct {
	Order repository.OrderForecast
	GL    repository.GLEntry
	Score int
}

// Result is the outcome of one matching pass.
type Result struct {
	Matched         []Pair
	UnmatchedOrders []repository.OrderForecast
	UnmatchedGL     []repository.GLEntry

	// Records skipped on input.
	AlreadyMatchedOrders int
	ExcludedOrders       int
	AlreadyMatchedGL     int
	ExcludedGL           int
}

// Run performs one strict pass. Inputs are not modified.
func Run(orders []repository.OrderForecast, entries []repository.GLEntry) Result {
	var res Result
	p := newPool(entries, &res)

	for _, o := range orders {
		switch classifyOrder(o) {
		case skipExcluded:
			res.ExcludedOrders++
			continue
		case skipMatched:
			res.AlreadyMatchedOrders++
			continue
		}
		k := orderKey(o)
		if idx, ok := p.take(k); ok {
			res.Matched = append(res.Matched, Pair{Order: o, GL: p.entries[idx], Score: ScoreExact})
			continue
		}
		res.UnmatchedOrders = append(res.UnmatchedOrders, o)
	}
	res.UnmatchedGL = p.rest()
	return res
}

// Qualifies reports whether o and g satisfy every strict predicate.
func Qualifies(o repository.OrderForecast, g repository.GLEntry) bool {
	return orderKey(o).matches(glKey(g))
}

type skipReason int

const (
	skipNone skipReason = iota
	skipExcluded
	skipMatched
)

func classifyOrder(o repository.OrderForecast) skipReason {
	switch {
	case o.IsExcluded || o.Status == repository.StatusExcluded:
		return skipExcluded
	case o.Status == repository.StatusMatched || o.Status == repository.StatusFuzzy || o.GLMatchID.Valid:
		return skipMatched
	}
	return skipNone
}

func classifyGL(g repository.GLEntry) skipReason {
	switch {
	case g.IsExcluded || g.Status == repository.StatusExcluded:
		return skipExcluded
	case g.Status == repository.StatusMatched || g.Status == repository.StatusFuzzy || g.OrderMatchID.Valid:
		return skipMatched
	}
	return skipNone
}

// key holds the comparable form of one side, computed once per record.
type key struct {
	month       string
	account     string
	description string
	amount      decimal.Decimal
	valid       bool
}

func orderKey(o repository.OrderForecast) key {
	return key{
		month:       o.AccountingPeriod,
		account:     textnorm.Normalize(o.AccountingItem),
		description: textnorm.Normalize(o.Description),
		amount:      o.Amount,
		valid:       o.AccountingPeriod != "",
	}
}

func glKey(g repository.GLEntry) key {
	return key{
		month:       period.OfDate(g.TransactionDate),
		account:     textnorm.Normalize(g.AccountName),
		description: textnorm.Normalize(g.Description),
		amount:      g.Amount,
		valid:       len(g.TransactionDate) >= 7,
	}
}

// matches evaluates the predicates in order: month, account, description, amount.
func (a key) matches(b key) bool {
	if !a.valid || !b.valid || a.month != b.month {
		return false
	}
	if a.account != b.account {
		return false
	}
	if a.description == "" || b.description == "" || a.description != b.description {
		return false
	}
	return a.amount.Equal(b.amount)
}

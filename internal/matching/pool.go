package matching

import "github.com/jask/glrecon/internal/database/repository"

// pool is an arena of GL entries with an availability set. Taking an entry
// clears its bit; the slice itself is never reordered, so scan order is the
// load order minus whatever earlier forecasts consumed.
type pool struct {
	entries   []repository.GLEntry
	keys      []key
	available []bool
	remaining int
}

func newPool(entries []repository.GLEntry, res *Result) *pool {
	p := &pool{
		entries:   entries,
		keys:      make([]key, len(entries)),
		available: make([]bool, len(entries)),
	}
	for i, g := range entries {
		switch classifyGL(g) {
		case skipExcluded:
			res.ExcludedGL++
			continue
		case skipMatched:
			res.AlreadyMatchedGL++
			continue
		}
		p.keys[i] = glKey(g)
		p.available[i] = true
		p.remaining++
	}
	return p
}

// take claims the first available entry matching k.
func (p *pool) take(k key) (int, bool) {
	if p.remaining == 0 {
		return 0, false
	}
	for i, ok := range p.available {
		if ok && k.matches(p.keys[i]) {
			p.available[i] = false
			p.remaining--
			return i, true
		}
	}
	return 0, false
}

// rest returns the entries nobody took, in load order.
func (p *pool) rest() []repository.GLEntry {
	out := make([]repository.GLEntry, 0, p.remaining)
	for i, ok := range p.available {
		if ok {
			out = append(out, p.entries[i])
		}
	}
	return out
}

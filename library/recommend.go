package library

import (
	"slices"
	"sync"
)

// MaxRecommendations caps the length of every recommendation list.
const MaxRecommendations = 5

// Strategy computes suggested items for a patron from a read-only catalog.
// Results never contain items the patron currently holds.
type Strategy interface {
	Name() string
	Recommend(p *Patron, inv Inventory) []Item
}

// StrategyByName returns the strategy registered under name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case FrequencyBased{}.Name():
		return FrequencyBased{}, nil
	case GenreBased{}.Name():
		return GenreBased{}, nil
	default:
		return nil, InvalidArgumentf("unknown recommendation strategy %q", name)
	}
}

// FrequencyBased recommends available items from the patron's most borrowed
// genre, newest first. Without any genre history every available item is a
// candidate.
//
// Ties between genres with equal counts go to the genre that appears first
// in the patron's history.
type FrequencyBased struct{}

func (FrequencyBased) Name() string { return "frequency" }

func (FrequencyBased) Recommend(p *Patron, inv Inventory) []Item {
	top := topGenre(p, inv)

	candidates := availableFor(p, inv, func(it Item) bool {
		return top == "" || it.Genre == top
	})
	slices.SortStableFunc(candidates, func(a, b Item) int { return b.Year - a.Year })
	return truncate(candidates)
}

// GenreBased recommends available items sharing any genre the patron has
// borrowed before, in catalog order. When nothing matches it falls back to
// every available item.
type GenreBased struct{}

func (GenreBased) Name() string { return "genre" }

func (GenreBased) Recommend(p *Patron, inv Inventory) []Item {
	liked := make(map[string]struct{})
	for _, rec := range p.History() {
		if it, ok := inv.Find(rec.Key); ok && it.Genre != "" {
			liked[it.Genre] = struct{}{}
		}
	}

	out := availableFor(p, inv, func(it Item) bool {
		_, ok := liked[it.Genre]
		return ok
	})
	if len(out) == 0 {
		out = availableFor(p, inv, func(Item) bool { return true })
	}
	return truncate(out)
}

// topGenre tallies genres over the full history, returned items included.
// Items no longer in the catalog and items without a genre are skipped.
func topGenre(p *Patron, inv Inventory) string {
	counts := make(map[string]int)
	var seen []string
	for _, rec := range p.History() {
		it, ok := inv.Find(rec.Key)
		if !ok || it.Genre == "" {
			continue
		}
		if counts[it.Genre] == 0 {
			seen = append(seen, it.Genre)
		}
		counts[it.Genre]++
	}

	top, best := "", 0
	for _, g := range seen {
		if counts[g] > best {
			top, best = g, counts[g]
		}
	}
	return top
}

// availableFor returns, in catalog order, items with a copy on the shelf
// that p does not hold and that satisfy keep.
func availableFor(p *Patron, inv Inventory, keep func(Item) bool) []Item {
	var out []Item
	for _, it := range inv.Items() {
		if inv.AvailableCopies(it.Key) > 0 && !p.Holds(it.Key) && keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func truncate(items []Item) []Item {
	if len(items) > MaxRecommendations {
		return items[:MaxRecommendations]
	}
	return items
}

// Recommender delegates to a strategy that can be swapped at runtime.
type Recommender struct {
	mu       sync.RWMutex
	strategy Strategy
}

// NewRecommender creates a recommender using s.
func NewRecommender(s Strategy) *Recommender {
	return &Recommender{strategy: s}
}

// SetStrategy replaces the active strategy.
func (r *Recommender) SetStrategy(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = s
}

// Strategy returns the active strategy.
func (r *Recommender) Strategy() Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategy
}

// Recommend runs the active strategy for p.
func (r *Recommender) Recommend(p *Patron, inv Inventory) []Item {
	return r.Strategy().Recommend(p, inv)
}

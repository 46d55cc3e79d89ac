package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/predictpesa/predictpesa-api/internal/domain/market"
)

// MarketRepository implements market.Repository.
type MarketRepository struct {
	mu      sync.RWMutex
	markets map[string]*market.Market
}

// NewMarketRepository returns an empty repository.
func NewMarketRepository() *MarketRepository {
	return &MarketRepository{markets: make(map[string]*market.Market)}
}

func (r *MarketRepository) Create(_ context.Context, m *market.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.ID] = copyMarket(m)
	return nil
}

func (r *MarketRepository) Get(_ context.Context, id string) (*market.Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	return copyMarket(m), nil
}

// List returns the page selected by f, newest first, and the number of
// markets matching f before paging.
func (r *MarketRepository) List(_ context.Context, f market.Filter) ([]*market.Market, int, error) {
	r.mu.RLock()
	matched := make([]*market.Market, 0, len(r.markets))
	for _, m := range r.markets {
		if matches(m, f) {
			matched = append(matched, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := paginate(matched, f.Skip, f.Limit)
	out := make([]*market.Market, len(page))
	for i, m := range page {
		out[i] = copyMarket(m)
	}
	return out, total, nil
}

func (r *MarketRepository) Update(_ context.Context, m *market.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markets[m.ID]; !ok {
		return market.ErrNotFound
	}
	r.markets[m.ID] = copyMarket(m)
	return nil
}

func (r *MarketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markets[id]; !ok {
		return market.ErrNotFound
	}
	delete(r.markets, id)
	return nil
}

func matches(m *market.Market, f market.Filter) bool {
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.FeaturedOnly && !m.IsFeatured {
		return false
	}
	if f.TrendingOnly && !m.IsTrending {
		return false
	}
	if f.CreatorID != "" && m.CreatorID != f.CreatorID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(m.Title), q) &&
			!strings.Contains(strings.ToLower(m.Description), q) &&
			!strings.Contains(strings.ToLower(m.Question), q) {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyMarket(m *market.Market) *market.Market {
	c := *m
	c.Tags = append([]string(nil), m.Tags...)
	c.CountryCodes = append([]string(nil), m.CountryCodes...)
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// StakeRepository implements market.StakeRepository.
type StakeRepository struct {
	mu     sync.RWMutex
	stakes map[string]*market.Stake
}

// NewStakeRepository returns an empty repository.
func NewStakeRepository() *StakeRepository {
	return &StakeRepository{stakes: make(map[string]*market.Stake)}
}

func (r *StakeRepository) Create(_ context.Context, s *market.Stake) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.stakes[s.ID] = &c
	return nil
}

func (r *StakeRepository) Get(_ context.Context, id string) (*market.Stake, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stakes[id]
	if !ok {
		return nil, market.ErrStakeNotFound
	}
	c := *s
	return &c, nil
}

func (r *StakeRepository) ListByUser(_ context.Context, userID string, skip, limit int) ([]*market.Stake, int, error) {
	all := r.collect(func(s *market.Stake) bool { return s.UserID == userID })
	return paginate(all, skip, limit), len(all), nil
}

func (r *StakeRepository) ListByMarket(_ context.Context, marketID string) ([]*market.Stake, error) {
	return r.collect(func(s *market.Stake) bool { return s.MarketID == marketID }), nil
}

func (r *StakeRepository) Update(_ context.Context, s *market.Stake) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stakes[s.ID]; !ok {
		return market.ErrStakeNotFound
	}
	c := *s
	r.stakes[s.ID] = &c
	return nil
}

// collect returns copies of the stakes accepted by keep, newest first.
func (r *StakeRepository) collect(keep func(*market.Stake) bool) []*market.Stake {
	r.mu.RLock()
	out := make([]*market.Stake, 0)
	for _, s := range r.stakes {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

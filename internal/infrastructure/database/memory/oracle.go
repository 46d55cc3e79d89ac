package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/predictpesa/predictpesa-api/internal/domain/oracle"
)

// OracleRepository implements oracle.Repository.
type OracleRepository struct {
	mu      sync.RWMutex
	sources map[string]*oracle.Source
	order   []string
	data    map[string][]*oracle.Data
}

// NewOracleRepository returns a repository seeded with sources.
func NewOracleRepository(sources ...*oracle.Source) *OracleRepository {
	r := &OracleRepository{
		sources: make(map[string]*oracle.Source, len(sources)),
		data:    make(map[string][]*oracle.Data),
	}
	for _, s := range sources {
		c := *s
		r.sources[s.ID] = &c
		r.order = append(r.order, s.ID)
	}
	return r
}

func (r *OracleRepository) ListSources(_ context.Context) ([]*oracle.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*oracle.Source, 0, len(r.order))
	for _, id := range r.order {
		c := *r.sources[id]
		out = append(out, &c)
	}
	return out, nil
}

func (r *OracleRepository) GetSource(_ context.Context, id string) (*oracle.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, oracle.ErrSourceNotFound
	}
	c := *s
	return &c, nil
}

func (r *OracleRepository) CreateData(_ context.Context, d *oracle.Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *d
	r.data[d.MarketID] = append(r.data[d.MarketID], &c)
	return nil
}

// ListByMarket returns the submissions for marketID, newest first.
func (r *OracleRepository) ListByMarket(_ context.Context, marketID string) ([]*oracle.Data, error) {
	r.mu.RLock()
	stored := r.data[marketID]
	out := make([]*oracle.Data, len(stored))
	for i, d := range stored {
		c := *d
		out[i] = &c
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OracleRepository) CountByMarket(_ context.Context, marketID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data[marketID]), nil
}

package market

import (
	"context"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

var (
	ErrNotFound      = errors.New(errors.ErrCodeMarketNotFound, "Market not found")
	ErrStakeNotFound = errors.New(errors.ErrCodeStakeNotFound, "Stake not found")
)

// Filter narrows List.  Zero values match everything.
type Filter struct {
	Skip         int
	Limit        int
	Category     Category
	Status       Status
	Search       string
	FeaturedOnly bool
	TrendingOnly bool
	CreatorID    string
}

// Repository is the persistence contract for markets.
type Repository interface {
	Create(ctx context.Context, m *Market) error
	Get(ctx context.Context, id string) (*Market, error)
	List(ctx context.Context, f Filter) ([]*Market, int, error)
	Update(ctx context.Context, m *Market) error
	Delete(ctx context.Context, id string) error
}

// StakeRepository is the persistence contract for stakes.
type StakeRepository interface {
	Create(ctx context.Context, s *Stake) error
	Get(ctx context.Context, id string) (*Stake, error)
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]*Stake, int, error)
	ListByMarket(ctx context.Context, marketID string) ([]*Stake, error)
	Update(ctx context.Context, s *Stake) error
}

// Package staking places and manages user stakes on markets.
package staking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/internal/domain/market"
	"github.com/predictpesa/predictpesa-api/internal/domain/transaction"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Paging bounds of ListByUser.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	ErrNotPermitted     = errors.New(errors.ErrCodeMarketNotPermitted, "User not authorized to stake")
	ErrMarketNotOpen    = errors.New(errors.ErrCodeMarketNotStakeable, "Market is not accepting stakes")
	ErrNotCancellable   = errors.New(errors.ErrCodeStakeNotCancellable, "Only pending stakes can be cancelled")
	ErrAmountOutOfRange = errors.New(errors.ErrCodeStakeAmountInvalid, "Stake amount out of range")
)

// PlaceRequest is the input of Place.
type PlaceRequest struct {
	MarketID  string  `json:"market_id"`
	Position  string  `json:"position"`
	Amount    float64 `json:"amount"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Validate checks required fields and normalises Position.
func (r *PlaceRequest) Validate() error {
	if r.MarketID == "" {
		return errors.Validation("market_id is required")
	}
	pos, err := market.ParsePosition(r.Position)
	if err != nil {
		return err
	}
	r.Position = string(pos)
	if r.Amount <= 0 {
		return errors.Validation("amount must be greater than 0")
	}
	if len(r.Reasoning) > market.MaxReasoningLen {
		return errors.Validation("reasoning must be at most 1000 characters")
	}
	return nil
}

// ListResult is a page of a user's stakes.
type ListResult struct {
	Stakes []*market.Stake `json:"stakes"`
	Total  int             `json:"total"`
	Skip   int             `json:"skip"`
	Limit  int             `json:"limit"`
}

// Service is the staking use-case boundary.
type Service interface {
	Place(ctx context.Context, actor *jwtauth.Identity, req *PlaceRequest) (*market.Stake, error)
	ListByUser(ctx context.Context, actor *jwtauth.Identity, skip, limit int) (*ListResult, error)
	Get(ctx context.Context, actor *jwtauth.Identity, id string) (*market.Stake, error)
	Cancel(ctx context.Context, actor *jwtauth.Identity, id string) error
}

// Deps are the collaborators of the service.  Transactions, Events and
// Logger may be nil.
type Deps struct {
	Markets      market.Repository
	Stakes       market.StakeRepository
	Users        user.Repository
	Transactions transaction.Repository
	Events       events.Publisher
	Config       config.MarketConfig
	Logger       logging.Logger
}

type serviceImpl struct {
	markets      market.Repository
	stakes       market.StakeRepository
	users        user.Repository
	transactions transaction.Repository
	events       events.Publisher
	cfg          config.MarketConfig
	logger       logging.Logger
	now          func() time.Time
}

// NewService wires the staking service.  Zero stake bounds fall back to the
// configuration defaults.
func NewService(d Deps) Service {
	s := &serviceImpl{
		markets:      d.Markets,
		stakes:       d.Stakes,
		users:        d.Users,
		transactions: d.Transactions,
		events:       d.Events,
		cfg:          d.Config,
		logger:       d.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if s.cfg.MinStakeAmount <= 0 {
		s.cfg.MinStakeAmount = config.DefaultMinStakeAmount
	}
	if s.cfg.MaxStakeAmount <= 0 {
		s.cfg.MaxStakeAmount = config.DefaultMaxStakeAmount
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.Named("staking")
	return s
}

func (s *serviceImpl) Place(ctx context.Context, actor *jwtauth.Identity, req *PlaceRequest) (*market.Stake, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Amount < s.cfg.MinStakeAmount || req.Amount > s.cfg.MaxStakeAmount {
		return nil, ErrAmountOutOfRange.WithDetail(fmt.Sprintf("amount must be between %g and %g", s.cfg.MinStakeAmount, s.cfg.MaxStakeAmount))
	}

	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !u.CanStake() && !(s.cfg.AllowUnverifiedStaking && u.InGoodStanding()) {
		return nil, ErrNotPermitted
	}

	m, err := s.markets.Get(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !m.CanStakeAt(now) {
		return nil, ErrMarketNotOpen
	}

	pos := market.Position(req.Position)
	st, err := market.NewStake(m, u.ID, pos, req.Amount, req.Reasoning, now)
	if err != nil {
		return nil, err
	}
	st.TransactionHash = transactionHash(st.ID)

	first, err := s.isFirstOnSide(ctx, m.ID, u.ID, pos)
	if err != nil {
		return nil, err
	}
	if err := s.stakes.Create(ctx, st); err != nil {
		return nil, err
	}
	m.AddStake(pos, st.Amount, first, now)
	if err := s.markets.Update(ctx, m); err != nil {
		return nil, err
	}

	if s.transactions != nil {
		tx := transaction.New(u.ID, transaction.TypeStake, st.Amount, now)
		tx.MarketID, tx.StakeID = m.ID, st.ID
		tx.TransactionHash = st.TransactionHash
		if err := s.transactions.Create(ctx, tx); err != nil {
			s.logger.Warn("Failed to record stake transaction", logging.String("stake_id", st.ID), logging.Err(err))
		}
	}

	s.logger.Info("Stake placed",
		logging.String("stake_id", st.ID),
		logging.String("market_id", m.ID),
		logging.String(logging.FieldUserID, u.ID),
		logging.String("position", string(pos)),
		logging.Float64("amount", st.Amount),
	)
	s.publish(ctx, events.New(events.TopicStakePlaced, m.ID, events.StakePlaced{
		StakeID:  st.ID,
		MarketID: m.ID,
		UserID:   u.ID,
		Position: string(pos),
		Amount:   st.Amount,
	}))
	return st, nil
}

// isFirstOnSide reports whether userID holds no live stake on pos yet.
func (s *serviceImpl) isFirstOnSide(ctx context.Context, marketID, userID string, pos market.Position) (bool, error) {
	existing, err := s.stakes.ListByMarket(ctx, marketID)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.UserID == userID && e.Position == pos && e.Status != market.StakeCancelled {
			return false, nil
		}
	}
	return true, nil
}

func (s *serviceImpl) ListByUser(ctx context.Context, actor *jwtauth.Identity, skip, limit int) (*ListResult, error) {
	if skip < 0 {
		return nil, errors.Validation("skip must be >= 0")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, errors.Validation("limit must be between 1 and 100")
	}
	stakes, total, err := s.stakes.ListByUser(ctx, actor.UserID, skip, limit)
	if err != nil {
		return nil, err
	}
	if stakes == nil {
		stakes = []*market.Stake{}
	}
	return &ListResult{Stakes: stakes, Total: total, Skip: skip, Limit: limit}, nil
}

// Get returns the caller's stake.  Other users' stakes read as missing.
func (s *serviceImpl) Get(ctx context.Context, actor *jwtauth.Identity, id string) (*market.Stake, error) {
	st, err := s.stakes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, market.ErrStakeNotFound
	}
	return st, nil
}

// Cancel withdraws a pending stake and takes it out of the market pools.
func (s *serviceImpl) Cancel(ctx context.Context, actor *jwtauth.Identity, id string) error {
	st, err := s.stakes.Get(ctx, id)
	if err != nil {
		return err
	}
	if st.UserID != actor.UserID {
		return market.ErrStakeNotFound
	}
	if !st.CanBeCancelledBy(actor.UserID) {
		return ErrNotCancellable
	}

	now := s.now()
	if err := st.Cancel(now); err != nil {
		return err
	}
	if err := s.stakes.Update(ctx, st); err != nil {
		return err
	}

	m, err := s.markets.Get(ctx, st.MarketID)
	if err != nil {
		s.logger.Warn("Cancelled stake references a missing market", logging.String("stake_id", st.ID), logging.Err(err))
		return nil
	}
	last, err := s.isFirstOnSide(ctx, m.ID, st.UserID, st.Position)
	if err != nil {
		return err
	}
	m.RemoveStake(st.Position, st.Amount, last, now)
	if err := s.markets.Update(ctx, m); err != nil {
		return err
	}

	s.logger.Info("Stake cancelled",
		logging.String("stake_id", st.ID),
		logging.String(logging.FieldUserID, actor.UserID),
	)
	return nil
}

func (s *serviceImpl) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish event", logging.String("topic", e.Topic), logging.Err(err))
	}
}

// transactionHash derives the simulated ledger reference of a stake.
func transactionHash(stakeID string) string {
	sum := sha256.Sum256([]byte(stakeID))
	return "0x" + hex.EncodeToString(sum[:])
}

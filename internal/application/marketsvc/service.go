// Package marketsvc implements the market lifecycle: creation, listing,
// editing, statistics, oracle reports and resolution.
package marketsvc

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/internal/domain/market"
	"github.com/predictpesa/predictpesa-api/internal/domain/oracle"
	"github.com/predictpesa/predictpesa-api/internal/domain/transaction"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Paging bounds of List.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	ErrCreateNotPermitted  = errors.New(errors.ErrCodeMarketNotPermitted, "User not authorized to create markets")
	ErrModifyNotPermitted  = errors.New(errors.ErrCodeMarketNotPermitted, "Not authorized to modify this market")
	ErrResolveNotPermitted = errors.New(errors.ErrCodeMarketNotPermitted, "Not authorized to resolve this market")
	ErrMarketHasStakes     = errors.New(errors.ErrCodeMarketInvalidState, "Cannot delete a market with stakes")
)

// CreateRequest is the input of Create.
type CreateRequest struct {
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Question             string          `json:"question"`
	Category             market.Category `json:"category"`
	StartDate            *time.Time      `json:"start_date,omitempty"`
	EndDate              time.Time       `json:"end_date"`
	Tags                 []string        `json:"tags,omitempty"`
	CountryCodes         []string        `json:"country_codes,omitempty"`
	AllowEarlyResolution bool            `json:"allow_early_resolution"`
}

// ListRequest is the input of List.
type ListRequest struct {
	Skip     int    `json:"skip"`
	Limit    int    `json:"limit"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
	Featured bool   `json:"featured,omitempty"`
	Trending bool   `json:"trending,omitempty"`
}

// Validate checks paging bounds and enumerations, defaulting Limit.
func (r *ListRequest) Validate() error {
	if r.Skip < 0 {
		return errors.Validation("skip must be >= 0")
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return errors.Validation("limit must be between 1 and 100")
	}
	if r.Category != "" && !market.Category(r.Category).IsValid() {
		return errors.Validation("invalid category: " + r.Category)
	}
	if r.Status != "" && !market.Status(r.Status).IsValid() {
		return errors.Validation("invalid status: " + r.Status)
	}
	return nil
}

// ListResult is a page of markets.
type ListResult struct {
	Markets []*market.Market `json:"markets"`
	Total   int              `json:"total"`
	Skip    int              `json:"skip"`
	Limit   int              `json:"limit"`
}

// UpdateRequest carries editable fields.  Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Question    *string          `json:"question,omitempty"`
	Category    *market.Category `json:"category,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Status      *market.Status   `json:"status,omitempty"`
	IsFeatured  *bool            `json:"is_featured,omitempty"`
	IsTrending  *bool            `json:"is_trending,omitempty"`
}

// ResolveRequest is the input of Resolve.
type ResolveRequest struct {
	Outcome    string  `json:"outcome"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Stats summarises a market.
type Stats struct {
	MarketID          string  `json:"market_id"`
	TotalStakeAmount  float64 `json:"total_stake_amount"`
	YesStakeAmount    float64 `json:"yes_stake_amount"`
	NoStakeAmount     float64 `json:"no_stake_amount"`
	TotalParticipants int     `json:"total_participants"`
	YesParticipants   int     `json:"yes_participants"`
	NoParticipants    int     `json:"no_participants"`
	AverageStake      float64 `json:"average_stake"`
	YesProbability    float64 `json:"yes_probability"`
	NoProbability     float64 `json:"no_probability"`
	TimeRemaining     int64   `json:"time_remaining"`
	OracleSubmissions int     `json:"oracle_submissions"`
	Status            string  `json:"status"`
}

// OracleSubmission is the input of SubmitOracleData.
type OracleSubmission struct {
	MarketID   string  `json:"market_id"`
	SourceID   string  `json:"source_id"`
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
	ProofURL   string  `json:"proof_url,omitempty"`
}

// Service is the market use-case boundary.
type Service interface {
	Create(ctx context.Context, actor *jwtauth.Identity, req *CreateRequest) (*market.Market, error)
	List(ctx context.Context, req *ListRequest) (*ListResult, error)
	Get(ctx context.Context, id string) (*market.Market, error)
	Update(ctx context.Context, actor *jwtauth.Identity, id string, req *UpdateRequest) (*market.Market, error)
	Delete(ctx context.Context, actor *jwtauth.Identity, id string) error
	Stats(ctx context.Context, id string) (*Stats, error)
	Resolve(ctx context.Context, actor *jwtauth.Identity, id string, req *ResolveRequest) (*market.Market, error)
	Trending(ctx context.Context, limit int) ([]*market.Market, error)
	Featured(ctx context.Context, limit int) ([]*market.Market, error)

	SubmitOracleData(ctx context.Context, actor *jwtauth.Identity, req *OracleSubmission) (*oracle.Data, error)
	OracleData(ctx context.Context, marketID string) ([]*oracle.Data, error)
	OracleSources(ctx context.Context) ([]*oracle.Source, error)
}

// Deps are the collaborators of the service.  Transactions, Events and
// Logger may be nil.
type Deps struct {
	Markets      market.Repository
	Stakes       market.StakeRepository
	Users        user.Repository
	Oracle       oracle.Repository
	Transactions transaction.Repository
	Events       events.Publisher
	Config       config.MarketConfig
	Logger       logging.Logger
}

type serviceImpl struct {
	markets      market.Repository
	stakes       market.StakeRepository
	users        user.Repository
	oracle       oracle.Repository
	transactions transaction.Repository
	events       events.Publisher
	cfg          config.MarketConfig
	logger       logging.Logger
	now          func() time.Time
}

// NewService wires the market service.
func NewService(d Deps) Service {
	s := &serviceImpl{
		markets:      d.Markets,
		stakes:       d.Stakes,
		users:        d.Users,
		oracle:       d.Oracle,
		transactions: d.Transactions,
		events:       d.Events,
		cfg:          d.Config,
		logger:       d.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.Named("markets")
	return s
}

func (s *serviceImpl) Create(ctx context.Context, actor *jwtauth.Identity, req *CreateRequest) (*market.Market, error) {
	creator, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !creator.CanCreateMarkets() {
		return nil, ErrCreateNotPermitted
	}

	now := s.now()
	draft := market.Draft{
		Title:                strings.TrimSpace(req.Title),
		Description:          strings.TrimSpace(req.Description),
		Question:             strings.TrimSpace(req.Question),
		Category:             req.Category,
		EndDate:              req.EndDate,
		Tags:                 req.Tags,
		CountryCodes:         req.CountryCodes,
		AllowEarlyResolution: req.AllowEarlyResolution,
	}
	if req.StartDate != nil {
		draft.StartDate = *req.StartDate
	}
	m, err := market.NewMarket(draft, creator.ID, s.cfg.CreationFee, now)
	if err != nil {
		return nil, err
	}
	if err := s.markets.Create(ctx, m); err != nil {
		return nil, err
	}

	if s.transactions != nil && s.cfg.CreationFee > 0 {
		tx := transaction.New(creator.ID, transaction.TypeMarketCreation, s.cfg.CreationFee, now)
		tx.MarketID = m.ID
		tx.Description = "Market creation fee"
		if err := s.transactions.Create(ctx, tx); err != nil {
			s.logger.Warn("Failed to record creation fee", logging.String("market_id", m.ID), logging.Err(err))
		}
	}

	s.logger.Info("Market created",
		logging.String("market_id", m.ID),
		logging.String(logging.FieldUserID, creator.ID),
	)
	s.publish(ctx, events.New(events.TopicMarketCreated, m.ID, events.MarketCreated{
		MarketID:  m.ID,
		CreatorID: m.CreatorID,
		Title:     m.Title,
		Category:  string(m.Category),
		EndDate:   m.EndDate,
	}))
	return m, nil
}

func (s *serviceImpl) List(ctx context.Context, req *ListRequest) (*ListResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	markets, total, err := s.markets.List(ctx, market.Filter{
		Skip:         req.Skip,
		Limit:        req.Limit,
		Category:     market.Category(req.Category),
		Status:       market.Status(req.Status),
		Search:       strings.TrimSpace(req.Search),
		FeaturedOnly: req.Featured,
		TrendingOnly: req.Trending,
	})
	if err != nil {
		return nil, err
	}
	if markets == nil {
		markets = []*market.Market{}
	}
	return &ListResult{Markets: markets, Total: total, Skip: req.Skip, Limit: req.Limit}, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*market.Market, error) {
	return s.markets.Get(ctx, id)
}

func (s *serviceImpl) Update(ctx context.Context, actor *jwtauth.Identity, id string, req *UpdateRequest) (*market.Market, error) {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.CanBeModifiedBy(actor.UserID, actor.IsAdmin()) {
		return nil, ErrModifyNotPermitted
	}
	if m.IsSettled() || m.Status == market.StatusCancelled {
		return nil, errors.New(errors.ErrCodeMarketInvalidState, "market is already "+string(m.Status))
	}
	if (req.IsFeatured != nil || req.IsTrending != nil) && !actor.IsAdmin() {
		return nil, ErrModifyNotPermitted
	}

	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		m.Description = strings.TrimSpace(*req.Description)
	}
	if req.Question != nil {
		m.Question = strings.TrimSpace(*req.Question)
	}
	if req.Category != nil {
		m.Category = *req.Category
	}
	if req.EndDate != nil {
		if !req.EndDate.After(s.now()) {
			return nil, errors.New(errors.ErrCodeMarketInvalidData, "End date must be in the future")
		}
		m.EndDate = req.EndDate.UTC()
	}
	if req.Tags != nil {
		m.Tags = req.Tags
	}
	if req.Status != nil {
		if *req.Status == market.StatusSettled {
			return nil, errors.New(errors.ErrCodeMarketInvalidState, "use resolve to settle a market")
		}
		m.Status = *req.Status
	}
	if req.IsFeatured != nil {
		m.IsFeatured = *req.IsFeatured
	}
	if req.IsTrending != nil {
		m.IsTrending = *req.IsTrending
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now()

	if err := s.markets.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *serviceImpl) Delete(ctx context.Context, actor *jwtauth.Identity, id string) error {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return err
	}
	if !m.CanBeModifiedBy(actor.UserID, actor.IsAdmin()) {
		return ErrModifyNotPermitted
	}
	if m.TotalStakeAmount > 0 {
		return ErrMarketHasStakes
	}
	if err := s.markets.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Market deleted",
		logging.String("market_id", id),
		logging.String(logging.FieldUserID, actor.UserID),
	)
	return nil
}

func (s *serviceImpl) Stats(ctx context.Context, id string) (*Stats, error) {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		MarketID:          m.ID,
		TotalStakeAmount:  m.TotalStakeAmount,
		YesStakeAmount:    m.YesStakeAmount,
		NoStakeAmount:     m.NoStakeAmount,
		TotalParticipants: m.TotalParticipants,
		YesParticipants:   m.YesParticipants,
		NoParticipants:    m.NoParticipants,
		YesProbability:    m.YesProbability,
		NoProbability:     m.NoProbability,
		TimeRemaining:     m.TimeRemainingAt(s.now()),
		Status:            string(m.Status),
	}
	if m.TotalParticipants > 0 {
		st.AverageStake = m.TotalStakeAmount / float64(m.TotalParticipants)
	}
	if s.oracle != nil {
		n, err := s.oracle.CountByMarket(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		st.OracleSubmissions = n
	}
	return st, nil
}

// Resolve settles the market and pays out its stakes.  The creator, an
// oracle or an admin may resolve.
func (s *serviceImpl) Resolve(ctx context.Context, actor *jwtauth.Identity, id string, req *ResolveRequest) (*market.Market, error) {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.CreatorID != actor.UserID && actor.Role != string(user.RoleOracle) && !actor.IsAdmin() {
		return nil, ErrResolveNotPermitted
	}
	outcome, err := market.ParsePosition(req.Outcome)
	if err != nil {
		return nil, err
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, errors.Validation("confidence must be between 0 and 1")
	}
	source := req.Source
	if source == "" {
		source = "manual"
	}

	now := s.now()
	if err := m.Resolve(outcome, source, req.Confidence, now); err != nil {
		return nil, err
	}
	if err := s.markets.Update(ctx, m); err != nil {
		return nil, err
	}
	s.settleStakes(ctx, m, now)

	s.logger.Info("Market resolved",
		logging.String("market_id", m.ID),
		logging.String("outcome", m.WinningOutcome),
		logging.String(logging.FieldUserID, actor.UserID),
	)
	s.publish(ctx, events.New(events.TopicMarketResolved, m.ID, events.MarketResolved{
		MarketID:       m.ID,
		WinningOutcome: m.WinningOutcome,
		Source:         m.ResolutionSource,
		Confidence:     m.ResolutionConfidence,
		ResolvedBy:     actor.UserID,
	}))
	return m, nil
}

// settleStakes records the payout of every live stake.  Failures are logged;
// the market stays settled.
func (s *serviceImpl) settleStakes(ctx context.Context, m *market.Market, now time.Time) {
	stakes, err := s.stakes.ListByMarket(ctx, m.ID)
	if err != nil {
		s.logger.Error("Failed to load stakes for settlement", logging.String("market_id", m.ID), logging.Err(err))
		return
	}
	for _, st := range stakes {
		if st.Status == market.StakeCancelled || st.Status == market.StakeSettled {
			continue
		}
		st.Settle(m, now)
		if err := s.stakes.Update(ctx, st); err != nil {
			s.logger.Error("Failed to settle stake", logging.String("stake_id", st.ID), logging.Err(err))
			continue
		}
		if st.PayoutAmount > 0 && s.transactions != nil {
			tx := transaction.New(st.UserID, transaction.TypePayout, st.PayoutAmount, now)
			tx.MarketID, tx.StakeID = m.ID, st.ID
			if err := s.transactions.Create(ctx, tx); err != nil {
				s.logger.Warn("Failed to record payout", logging.String("stake_id", st.ID), logging.Err(err))
			}
		}
	}
}

// Trending returns active markets, flagged ones first, then by volume.
func (s *serviceImpl) Trending(ctx context.Context, limit int) ([]*market.Market, error) {
	limit = clampLimit(limit)
	active, _, err := s.markets.List(ctx, market.Filter{Status: market.StatusActive})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].IsTrending != active[j].IsTrending {
			return active[i].IsTrending
		}
		if active[i].TotalStakeAmount != active[j].TotalStakeAmount {
			return active[i].TotalStakeAmount > active[j].TotalStakeAmount
		}
		return active[i].TotalParticipants > active[j].TotalParticipants
	})
	if len(active) > limit {
		active = active[:limit]
	}
	return nonNil(active), nil
}

func (s *serviceImpl) Featured(ctx context.Context, limit int) ([]*market.Market, error) {
	markets, _, err := s.markets.List(ctx, market.Filter{
		Status:       market.StatusActive,
		FeaturedOnly: true,
		Limit:        clampLimit(limit),
	})
	if err != nil {
		return nil, err
	}
	return nonNil(markets), nil
}

// SubmitOracleData records a report on a market's outcome.  Reports from
// oracles and admins are verified on submission.
func (s *serviceImpl) SubmitOracleData(ctx context.Context, actor *jwtauth.Identity, req *OracleSubmission) (*oracle.Data, error) {
	if _, err := s.markets.Get(ctx, req.MarketID); err != nil {
		return nil, err
	}
	src, err := s.oracle.GetSource(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	if !src.IsActive {
		return nil, errors.Validation("oracle source is not active")
	}

	now := s.now()
	d, err := oracle.NewData(req.MarketID, src, actor.UserID, strings.ToLower(req.Outcome), req.Confidence, req.Evidence, now)
	if err != nil {
		return nil, err
	}
	d.ProofURL = req.ProofURL
	if actor.Role == string(user.RoleOracle) || actor.IsAdmin() {
		d.Verify(actor.UserID, now)
	}
	if err := s.oracle.CreateData(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *serviceImpl) OracleData(ctx context.Context, marketID string) ([]*oracle.Data, error) {
	if _, err := s.markets.Get(ctx, marketID); err != nil {
		return nil, err
	}
	return s.oracle.ListByMarket(ctx, marketID)
}

func (s *serviceImpl) OracleSources(ctx context.Context) ([]*oracle.Source, error) {
	return s.oracle.ListSources(ctx)
}

func (s *serviceImpl) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish event", logging.String("topic", e.Topic), logging.Err(err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func nonNil(ms []*market.Market) []*market.Market {
	if ms == nil {
		return []*market.Market{}
	}
	return ms
}

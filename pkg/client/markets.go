package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Market is a prediction market as returned by the API.
type Market struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Question             string     `json:"question"`
	Category             string     `json:"category"`
	MarketType           string     `json:"market_type"`
	Status               string     `json:"status"`
	CreatorID            string     `json:"creator_id"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	ResolutionDate       *time.Time `json:"resolution_date,omitempty"`
	TotalStakeAmount     float64    `json:"total_stake_amount"`
	YesStakeAmount       float64    `json:"yes_stake_amount"`
	NoStakeAmount        float64    `json:"no_stake_amount"`
	TotalParticipants    int        `json:"total_participants"`
	YesProbability       float64    `json:"yes_probability"`
	NoProbability        float64    `json:"no_probability"`
	WinningOutcome       string     `json:"winning_outcome,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
	CountryCodes         []string   `json:"country_codes,omitempty"`
	IsFeatured           bool       `json:"is_featured"`
	IsTrending           bool       `json:"is_trending"`
	AllowEarlyResolution bool       `json:"allow_early_resolution"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CreateMarketRequest is the body of POST /api/v1/markets/create.
type CreateMarketRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Question             string     `json:"question"`
	Category             string     `json:"category"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	EndDate              time.Time  `json:"end_date"`
	Tags                 []string   `json:"tags,omitempty"`
	CountryCodes         []string   `json:"country_codes,omitempty"`
	AllowEarlyResolution bool       `json:"allow_early_resolution"`
}

// MarketListOptions filters GET /api/v1/markets/.  Zero values are omitted.
type MarketListOptions struct {
	Skip         int
	Limit        int
	Category     string
	Status       string
	Search       string
	FeaturedOnly bool
	TrendingOnly bool
}

func (o *MarketListOptions) encode() string {
	if o == nil {
		return ""
	}
	q := url.Values{}
	if o.Skip > 0 {
		q.Set("skip", strconv.Itoa(o.Skip))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.FeaturedOnly {
		q.Set("featured_only", "true")
	}
	if o.TrendingOnly {
		q.Set("trending_only", "true")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// MarketList is one page of markets.
type MarketList struct {
	Markets []Market `json:"markets"`
	Total   int      `json:"total"`
	Skip    int      `json:"skip"`
	Limit   int      `json:"limit"`
}

// MarketStats summarises the stakes on a market.
type MarketStats struct {
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
}

// OracleSource is a data provider used to resolve markets.
type OracleSource struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	SourceType       string  `json:"source_type"`
	Weight           float64 `json:"weight"`
	IsActive         bool    `json:"is_active"`
	ReliabilityScore float64 `json:"reliability_score"`
	Description      string  `json:"description,omitempty"`
}

// MarketsClient covers /api/v1/markets and /api/v1/oracle.
type MarketsClient struct {
	client *Client
}

// List returns a page of markets.  It does not need a token.
func (m *MarketsClient) List(ctx context.Context, opts *MarketListOptions) (*MarketList, error) {
	var res MarketList
	if err := m.client.get(ctx, "/api/v1/markets/"+opts.encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Get returns one market.
func (m *MarketsClient) Get(ctx context.Context, id string) (*Market, error) {
	if err := requireID("market", id); err != nil {
		return nil, err
	}
	var res Market
	if err := m.client.get(ctx, "/api/v1/markets/"+url.PathEscape(id)+"/", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Create opens a new market owned by the caller.
func (m *MarketsClient) Create(ctx context.Context, req *CreateMarketRequest) (*Market, error) {
	var res Market
	if err := m.client.post(ctx, "/api/v1/markets/create", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats returns the stake totals of a market.
func (m *MarketsClient) Stats(ctx context.Context, id string) (*MarketStats, error) {
	if err := requireID("market", id); err != nil {
		return nil, err
	}
	var res MarketStats
	if err := m.client.get(ctx, "/api/v1/markets/"+url.PathEscape(id)+"/stats", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Trending returns up to limit trending markets; limit <= 0 uses the
// server default.
func (m *MarketsClient) Trending(ctx context.Context, limit int) ([]Market, error) {
	return m.highlight(ctx, "trending", limit)
}

// Featured returns up to limit featured markets.
func (m *MarketsClient) Featured(ctx context.Context, limit int) ([]Market, error) {
	return m.highlight(ctx, "featured", limit)
}

func (m *MarketsClient) highlight(ctx context.Context, kind string, limit int) ([]Market, error) {
	path := "/api/v1/markets/" + kind + "/"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var res []Market
	if err := m.client.get(ctx, path, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// OracleSources lists the oracle data providers.  It needs a token.
func (m *MarketsClient) OracleSources(ctx context.Context) ([]OracleSource, error) {
	var res []OracleSource
	if err := m.client.get(ctx, "/api/v1/oracle/sources", &res); err != nil {
		return nil, err
	}
	return res, nil
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidConfig, kind)
	}
	return nil
}

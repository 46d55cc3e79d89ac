package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Stake is a position taken on a market.
type Stake struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	MarketID        string     `json:"market_id"`
	Position        string     `json:"position"`
	Amount          float64    `json:"amount"`
	Status          string     `json:"status"`
	TokenAmount     float64    `json:"token_amount,omitempty"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
	PayoutAmount    float64    `json:"payout_amount,omitempty"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
	OddsAtStake     *float64   `json:"odds_at_stake,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PlaceStakeRequest is the body of POST /api/v1/stakes/create.  Position is
// "yes" or "no".
type PlaceStakeRequest struct {
	MarketID  string  `json:"market_id"`
	Position  string  `json:"position"`
	Amount    float64 `json:"amount"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// StakeList is one page of the caller's stakes.
type StakeList struct {
	Stakes []Stake `json:"stakes"`
	Total  int     `json:"total"`
	Skip   int     `json:"skip"`
	Limit  int     `json:"limit"`
}

// StakesClient covers /api/v1/stakes.  Every call needs a token.
type StakesClient struct {
	client *Client
}

// Place stakes Amount on one side of a market.
func (s *StakesClient) Place(ctx context.Context, req *PlaceStakeRequest) (*Stake, error) {
	var res Stake
	if err := s.client.post(ctx, "/api/v1/stakes/create", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Mine returns a page of the caller's stakes, newest first.  limit <= 0 uses
// the server default.
func (s *StakesClient) Mine(ctx context.Context, skip, limit int) (*StakeList, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/stakes/my-stakes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res StakeList
	if err := s.client.get(ctx, path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Get returns one of the caller's stakes.
func (s *StakesClient) Get(ctx context.Context, id string) (*Stake, error) {
	if err := requireID("stake", id); err != nil {
		return nil, err
	}
	var res Stake
	if err := s.client.get(ctx, "/api/v1/stakes/"+url.PathEscape(id), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Cancel withdraws a pending stake.
func (s *StakesClient) Cancel(ctx context.Context, id string) error {
	if err := requireID("stake", id); err != nil {
		return err
	}
	return s.client.delete(ctx, "/api/v1/stakes/"+url.PathEscape(id), nil)
}

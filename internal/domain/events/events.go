// Package events defines the domain events the API emits and the Publisher
// contract that carries them off-process.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topics, before the deployment prefix is applied.
const (
	TopicMarketCreated  = "market.created"
	TopicMarketResolved = "market.resolved"
	TopicStakePlaced    = "stake.placed"
	TopicUserRegistered = "user.registered"
	TopicUserLoggedOut  = "user.logged_out"
)

// Event is one domain fact.  Key orders events of the same aggregate.
type Event struct {
	ID         string
	Topic      string
	Key        string
	OccurredAt time.Time
	Payload    any
}

// New stamps an event with a fresh id and the current time.
func New(topic, key string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events.  Implementations must be safe for concurrent
// use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MarketCreated is the payload of TopicMarketCreated.
type MarketCreated struct {
	MarketID  string    `json:"market_id"`
	CreatorID string    `json:"creator_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	EndDate   time.Time `json:"end_date"`
}

// MarketResolved is the payload of TopicMarketResolved.
type MarketResolved struct {
	MarketID       string  `json:"market_id"`
	WinningOutcome string  `json:"winning_outcome"`
	Source         string  `json:"resolution_source"`
	Confidence     float64 `json:"resolution_confidence"`
	ResolvedBy     string  `json:"resolved_by"`
}

// StakePlaced is the payload of TopicStakePlaced.
type StakePlaced struct {
	StakeID  string  `json:"stake_id"`
	MarketID string  `json:"market_id"`
	UserID   string  `json:"user_id"`
	Position string  `json:"position"`
	Amount   float64 `json:"amount"`
}

// UserRegistered is the payload of TopicUserRegistered.
type UserRegistered struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UserLoggedOut is the payload of TopicUserLoggedOut.
type UserLoggedOut struct {
	UserID string `json:"user_id"`
}

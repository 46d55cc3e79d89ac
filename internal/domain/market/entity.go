// Package market holds prediction markets and the stakes placed on them.
package market

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Category groups markets for browsing.
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategorySports        Category = "sports"
	CategoryEconomics     Category = "economics"
	CategoryWeather       Category = "weather"
	CategoryTechnology    Category = "technology"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategoryAgriculture   Category = "agriculture"
	CategoryEnergy        Category = "energy"
	CategoryOther         Category = "other"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPolitics, CategorySports, CategoryEconomics, CategoryWeather,
		CategoryTechnology, CategoryEntertainment, CategoryHealth, CategoryEducation,
		CategoryAgriculture, CategoryEnergy, CategoryOther:
		return true
	}
	return false
}

// Status is the lifecycle state of a market.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusClosed    Status = "closed"
	StatusSettled   Status = "settled"
	StatusDisputed  Status = "disputed"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusClosed, StatusSettled, StatusDisputed, StatusCancelled:
		return true
	}
	return false
}

// Type is the outcome shape of a market.
type Type string

const (
	TypeBinary   Type = "binary"
	TypeMultiple Type = "multiple"
	TypeScalar   Type = "scalar"
)

// Field length bounds enforced by Validate.
const (
	TitleMinLen       = 10
	TitleMaxLen       = 500
	DescriptionMinLen = 20
	DescriptionMaxLen = 2000
	QuestionMinLen    = 10
	QuestionMaxLen    = 1000
)

// Market is a yes/no question users stake on until EndDate.
type Market struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	Question             string         `json:"question"`
	Category             Category       `json:"category"`
	MarketType           Type           `json:"market_type"`
	Status               Status         `json:"status"`
	CreatorID            string         `json:"creator_id"`
	StartDate            time.Time      `json:"start_date"`
	EndDate              time.Time      `json:"end_date"`
	ResolutionDate       *time.Time     `json:"resolution_date,omitempty"`
	SettlementDate       *time.Time     `json:"settlement_date,omitempty"`
	ContractAddress      string         `json:"contract_address,omitempty"`
	TotalStakeAmount     float64        `json:"total_stake_amount"`
	YesStakeAmount       float64        `json:"yes_stake_amount"`
	NoStakeAmount        float64        `json:"no_stake_amount"`
	CreationFee          float64        `json:"creation_fee"`
	ProtocolFee          float64        `json:"protocol_fee"`
	TotalParticipants    int            `json:"total_participants"`
	YesParticipants      int            `json:"yes_participants"`
	NoParticipants       int            `json:"no_participants"`
	YesProbability       float64        `json:"yes_probability"`
	NoProbability        float64        `json:"no_probability"`
	WinningOutcome       string         `json:"winning_outcome,omitempty"`
	ResolutionSource     string         `json:"resolution_source,omitempty"`
	ResolutionConfidence float64        `json:"resolution_confidence,omitempty"`
	Tags                 []string       `json:"tags,omitempty"`
	CountryCodes         []string       `json:"country_codes,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	AIGenerated          bool           `json:"ai_generated"`
	IsFeatured           bool           `json:"is_featured"`
	IsTrending           bool           `json:"is_trending"`
	AllowEarlyResolution bool           `json:"allow_early_resolution"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Draft carries the caller-supplied fields of a new market.
type Draft struct {
	Title                string
	Description          string
	Question             string
	Category             Category
	StartDate            time.Time
	EndDate              time.Time
	Tags                 []string
	CountryCodes         []string
	AllowEarlyResolution bool
}

// NewMarket validates d and returns an active binary market owned by
// creatorID.  A zero StartDate means now.
func NewMarket(d Draft, creatorID string, creationFee float64, now time.Time) (*Market, error) {
	if creatorID == "" {
		return nil, errors.New(errors.ErrCodeMarketInvalidData, "creator is required")
	}
	start := d.StartDate
	if start.IsZero() {
		start = now
	}
	category := d.Category
	if category == "" {
		category = CategoryOther
	}
	id := uuid.NewString()
	m := &Market{
		ID:                   id,
		Title:                d.Title,
		Description:          d.Description,
		Question:             d.Question,
		Category:             category,
		MarketType:           TypeBinary,
		Status:               StatusActive,
		CreatorID:            creatorID,
		StartDate:            start.UTC(),
		EndDate:              d.EndDate.UTC(),
		ContractAddress:      "0.0." + id[:8],
		CreationFee:          creationFee,
		YesProbability:       0.5,
		NoProbability:        0.5,
		Tags:                 d.Tags,
		CountryCodes:         d.CountryCodes,
		AllowEarlyResolution: d.AllowEarlyResolution,
		CreatedAt:            now.UTC(),
		UpdatedAt:            now.UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !m.EndDate.After(now) {
		return nil, errors.New(errors.ErrCodeMarketInvalidData, "End date must be in the future")
	}
	return m, nil
}

func invalid(msg string) error { return errors.New(errors.ErrCodeMarketInvalidData, msg) }

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// Validate checks field bounds and enumerations.
func (m *Market) Validate() error {
	if !lengthBetween(m.Title, TitleMinLen, TitleMaxLen) {
		return invalid("title must be between 10 and 500 characters")
	}
	if !lengthBetween(m.Description, DescriptionMinLen, DescriptionMaxLen) {
		return invalid("description must be between 20 and 2000 characters")
	}
	if !lengthBetween(m.Question, QuestionMinLen, QuestionMaxLen) {
		return invalid("question must be between 10 and 1000 characters")
	}
	if !m.Category.IsValid() {
		return invalid("invalid category: " + string(m.Category))
	}
	if !m.Status.IsValid() {
		return invalid("invalid status: " + string(m.Status))
	}
	if !m.EndDate.After(m.StartDate) {
		return invalid("end date must be after start date")
	}
	return nil
}

// IsActiveAt reports whether the market is open at now.
func (m *Market) IsActiveAt(now time.Time) bool {
	return m.Status == StatusActive && !now.Before(m.StartDate) && !now.After(m.EndDate)
}

// IsClosedAt reports whether the market no longer takes stakes at now.
func (m *Market) IsClosedAt(now time.Time) bool {
	return m.Status == StatusClosed || m.Status == StatusSettled || now.After(m.EndDate)
}

func (m *Market) IsActive() bool  { return m.IsActiveAt(time.Now()) }
func (m *Market) IsClosed() bool  { return m.IsClosedAt(time.Now()) }
func (m *Market) IsSettled() bool { return m.Status == StatusSettled }

// TimeRemainingAt returns whole seconds until EndDate, or 0 once closed.
func (m *Market) TimeRemainingAt(now time.Time) int64 {
	if m.IsClosedAt(now) || !now.Before(m.EndDate) {
		return 0
	}
	return int64(m.EndDate.Sub(now) / time.Second)
}

// CalculateProbabilities sets the yes/no probabilities from the stake pools.
// An empty market is even.
func (m *Market) CalculateProbabilities() {
	if m.TotalStakeAmount == 0 {
		m.YesProbability, m.NoProbability = 0.5, 0.5
		return
	}
	m.YesProbability = m.YesStakeAmount / m.TotalStakeAmount
	m.NoProbability = m.NoStakeAmount / m.TotalStakeAmount
}

// CanStakeAt reports whether a new stake may be placed at now.
func (m *Market) CanStakeAt(now time.Time) bool {
	return m.Status == StatusActive && !m.IsClosedAt(now) && m.ContractAddress != ""
}

// CanBeModifiedBy reports whether userID may edit or delete the market.
func (m *Market) CanBeModifiedBy(userID string, isAdmin bool) bool {
	return isAdmin || m.CreatorID == userID
}

// AddStake folds a confirmed position into the pools and recomputes the
// probabilities.  newParticipant is false when the user already holds a
// stake on the same side.
func (m *Market) AddStake(pos Position, amount float64, newParticipant bool, now time.Time) {
	m.TotalStakeAmount += amount
	switch pos {
	case PositionYes:
		m.YesStakeAmount += amount
		if newParticipant {
			m.YesParticipants++
		}
	case PositionNo:
		m.NoStakeAmount += amount
		if newParticipant {
			m.NoParticipants++
		}
	}
	if newParticipant {
		m.TotalParticipants++
	}
	m.CalculateProbabilities()
	m.UpdatedAt = now
}

// RemoveStake reverses AddStake for a cancelled stake.
func (m *Market) RemoveStake(pos Position, amount float64, lastOfUser bool, now time.Time) {
	m.TotalStakeAmount -= amount
	switch pos {
	case PositionYes:
		m.YesStakeAmount -= amount
		if lastOfUser && m.YesParticipants > 0 {
			m.YesParticipants--
		}
	case PositionNo:
		m.NoStakeAmount -= amount
		if lastOfUser && m.NoParticipants > 0 {
			m.NoParticipants--
		}
	}
	if lastOfUser && m.TotalParticipants > 0 {
		m.TotalParticipants--
	}
	if m.TotalStakeAmount < 0 {
		m.TotalStakeAmount = 0
	}
	m.CalculateProbabilities()
	m.UpdatedAt = now
}

// Resolve settles the market on outcome ("yes" or "no").
func (m *Market) Resolve(outcome Position, source string, confidence float64, now time.Time) error {
	if outcome != PositionYes && outcome != PositionNo {
		return invalid("winning outcome must be yes or no")
	}
	if m.IsSettled() || m.Status == StatusCancelled {
		return errors.New(errors.ErrCodeMarketInvalidState, "market is already "+string(m.Status))
	}
	if !m.AllowEarlyResolution && now.Before(m.EndDate) {
		return errors.New(errors.ErrCodeMarketInvalidState, "market has not ended and does not allow early resolution")
	}
	m.Status = StatusSettled
	m.WinningOutcome = string(outcome)
	m.ResolutionSource = source
	m.ResolutionConfidence = confidence
	m.ResolutionDate = &now
	m.SettlementDate = &now
	m.UpdatedAt = now
	return nil
}

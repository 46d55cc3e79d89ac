package market

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Position is the side a stake backs.
type Position string

const (
	PositionYes Position = "yes"
	PositionNo  Position = "no"
)

// ParsePosition accepts "yes"/"no" in any case.
func ParsePosition(s string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(s))); p {
	case PositionYes, PositionNo:
		return p, nil
	}
	return "", errors.Validation("position must be 'yes' or 'no'")
}

// StakeStatus is the lifecycle state of a stake.
type StakeStatus string

const (
	StakePending   StakeStatus = "pending"
	StakeConfirmed StakeStatus = "confirmed"
	StakeSettled   StakeStatus = "settled"
	StakeCancelled StakeStatus = "cancelled"
)

// MaxReasoningLen bounds the free-text reasoning on a stake.
const MaxReasoningLen = 1000

// Stake is one user's position on a market.
type Stake struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	MarketID        string      `json:"market_id"`
	Position        Position    `json:"position"`
	Amount          float64     `json:"amount"`
	Status          StakeStatus `json:"status"`
	TokenAmount     float64     `json:"token_amount,omitempty"`
	TransactionHash string      `json:"transaction_hash,omitempty"`
	PayoutAmount    float64     `json:"payout_amount,omitempty"`
	SettledAt       *time.Time  `json:"settled_at,omitempty"`
	Reasoning       string      `json:"reasoning,omitempty"`
	OddsAtStake     *float64    `json:"odds_at_stake,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewStake builds a pending stake priced at the market's current
// probability for pos.
func NewStake(m *Market, userID string, pos Position, amount float64, reasoning string, now time.Time) (*Stake, error) {
	if amount <= 0 {
		return nil, errors.New(errors.ErrCodeStakeAmountInvalid, "stake amount must be positive")
	}
	if len(reasoning) > MaxReasoningLen {
		return nil, errors.Validation("reasoning must be at most 1000 characters")
	}
	s := &Stake{
		ID:        uuid.NewString(),
		UserID:    userID,
		MarketID:  m.ID,
		Position:  pos,
		Amount:    amount,
		Status:    StakePending,
		Reasoning: reasoning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if odds, ok := m.OddsFor(pos); ok {
		s.OddsAtStake = &odds
	}
	return s, nil
}

// OddsFor returns decimal odds for pos, the inverse of its probability.
func (m *Market) OddsFor(pos Position) (float64, bool) {
	p := m.YesProbability
	if pos == PositionNo {
		p = m.NoProbability
	}
	if p <= 0 {
		return 0, false
	}
	return 1 / p, true
}

// IsWinning reports whether the stake backs the winning side.  ok is false
// until the market settles.
func (s *Stake) IsWinning(m *Market) (winning, ok bool) {
	if !m.IsSettled() {
		return false, false
	}
	return string(s.Position) == m.WinningOutcome, true
}

// PotentialPayout is amount times the odds at stake time.  ok is false when
// no odds were recorded.
func (s *Stake) PotentialPayout() (float64, bool) {
	if s.OddsAtStake == nil || *s.OddsAtStake == 0 {
		return 0, false
	}
	return s.Amount * *s.OddsAtStake, true
}

// CalculatePayout returns the settled payout: zero for a stake that has not
// won, otherwise amount times odds, or the amount itself without odds.
func (s *Stake) CalculatePayout(m *Market) float64 {
	if winning, ok := s.IsWinning(m); !ok || !winning {
		return 0
	}
	if payout, ok := s.PotentialPayout(); ok {
		return payout
	}
	return s.Amount
}

// CanBeCancelledBy reports whether userID may withdraw the stake.
func (s *Stake) CanBeCancelledBy(userID string) bool {
	return s.UserID == userID && s.Status == StakePending
}

// Cancel withdraws a pending stake.
func (s *Stake) Cancel(now time.Time) error {
	if s.Status != StakePending {
		return errors.New(errors.ErrCodeStakeNotCancellable, "only pending stakes can be cancelled")
	}
	s.Status = StakeCancelled
	s.UpdatedAt = now
	return nil
}

// Settle records the payout once the market resolves.
func (s *Stake) Settle(m *Market, now time.Time) {
	s.PayoutAmount = s.CalculatePayout(m)
	s.Status = StakeSettled
	s.SettledAt = &now
	s.UpdatedAt = now
}

// Package transaction records ledger operations tied to users, markets and
// stakes.
package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type is the kind of ledger operation.
type Type string

const (
	TypeStake           Type = "stake"
	TypePayout          Type = "payout"
	TypeMarketCreation  Type = "market_creation"
	TypeTokenMint       Type = "token_mint"
	TypeTokenBurn       Type = "token_burn"
	TypeLiquidityAdd    Type = "liquidity_add"
	TypeLiquidityRemove Type = "liquidity_remove"
	TypeSwap            Type = "swap"
	TypeWithdrawal      Type = "withdrawal"
	TypeDeposit         Type = "deposit"
)

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Transaction is one ledger operation.  Amount and Fee are nil when not
// applicable.
type Transaction struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Type            Type       `json:"transaction_type"`
	Status          Status     `json:"status"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
	BlockNumber     int64      `json:"block_number,omitempty"`
	BlockHash       string     `json:"block_hash,omitempty"`
	Amount          *float64   `json:"amount,omitempty"`
	Fee             *float64   `json:"fee,omitempty"`
	MarketID        string     `json:"market_id,omitempty"`
	StakeID         string     `json:"stake_id,omitempty"`
	Description     string     `json:"description,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// New returns a pending transaction of type t for userID.
func New(userID string, t Type, amount float64, now time.Time) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        t,
		Status:      StatusPending,
		Amount:      &amount,
		SubmittedAt: &now,
		CreatedAt:   now,
	}
}

func (t *Transaction) IsConfirmed() bool { return t.Status == StatusConfirmed }
func (t *Transaction) IsFailed() bool    { return t.Status == StatusFailed }

// TotalCost is amount plus fee.  ok is false when the amount is unknown.
func (t *Transaction) TotalCost() (float64, bool) {
	if t.Amount == nil {
		return 0, false
	}
	total := *t.Amount
	if t.Fee != nil {
		total += *t.Fee
	}
	return total, true
}

// MarkConfirmed records inclusion in a block.
func (t *Transaction) MarkConfirmed(blockNumber int64, blockHash string, now time.Time) {
	t.Status = StatusConfirmed
	t.BlockNumber = blockNumber
	t.BlockHash = blockHash
	t.ConfirmedAt = &now
}

// MarkFailed records a failed submission.
func (t *Transaction) MarkFailed(msg string) {
	t.Status = StatusFailed
	t.ErrorMessage = msg
}

// Repository stores transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	ListByUser(ctx context.Context, userID string) ([]*Transaction, error)
}

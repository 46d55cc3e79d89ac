// Package oracle models resolution data submitted for markets and the
// sources it comes from.
package oracle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// SourceType identifies where oracle data comes from.
type SourceType string

const (
	SourceChainlink  SourceType = "chainlink"
	SourceReuters    SourceType = "reuters"
	SourceJournalist SourceType = "journalist"
	SourceDAOVote    SourceType = "dao_vote"
	SourceAPI        SourceType = "api"
	SourceManual     SourceType = "manual"
)

// DataStatus is the review state of a submission.
type DataStatus string

const (
	DataPending  DataStatus = "pending"
	DataVerified DataStatus = "verified"
	DataDisputed DataStatus = "disputed"
	DataRejected DataStatus = "rejected"
)

// MinResolutionConfidence is the confidence a verified submission needs
// before it can resolve a market.
const MinResolutionConfidence = 0.8

// Source is a configured oracle feed.
type Source struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	SourceType       SourceType `json:"source_type"`
	EndpointURL      string     `json:"endpoint_url,omitempty"`
	Weight           float64    `json:"weight"`
	IsActive         bool       `json:"is_active"`
	ReliabilityScore float64    `json:"reliability_score"`
	Description      string     `json:"description,omitempty"`
}

// Data is one outcome report for a market.
type Data struct {
	ID          string         `json:"id"`
	MarketID    string         `json:"market_id"`
	SourceID    string         `json:"source_id"`
	SubmitterID string         `json:"submitter_id,omitempty"`
	Outcome     string         `json:"outcome"`
	Confidence  float64        `json:"confidence"`
	Status      DataStatus     `json:"status"`
	Evidence    string         `json:"evidence,omitempty"`
	ProofURL    string         `json:"proof_url,omitempty"`
	VerifiedBy  string         `json:"verified_by,omitempty"`
	VerifiedAt  *time.Time     `json:"verified_at,omitempty"`
	RawData     map[string]any `json:"raw_data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`

	Source *Source `json:"source,omitempty"`
}

// NewData validates a submission and returns it pending review.
func NewData(marketID string, src *Source, submitterID, outcome string, confidence float64, evidence string, now time.Time) (*Data, error) {
	if marketID == "" {
		return nil, errors.Validation("market_id is required")
	}
	if src == nil {
		return nil, errors.Validation("source is required")
	}
	if outcome == "" {
		return nil, errors.Validation("outcome is required")
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.Validation("confidence must be between 0 and 1")
	}
	return &Data{
		ID:          uuid.NewString(),
		MarketID:    marketID,
		SourceID:    src.ID,
		SubmitterID: submitterID,
		Outcome:     outcome,
		Confidence:  confidence,
		Status:      DataPending,
		Evidence:    evidence,
		CreatedAt:   now,
		Source:      src,
	}, nil
}

// WeightedConfidence scales confidence by the source's weight and
// reliability.  Without a source it is zero.
func (d *Data) WeightedConfidence() float64 {
	if d.Source == nil {
		return 0
	}
	return d.Confidence * d.Source.Weight * d.Source.ReliabilityScore
}

func (d *Data) IsVerified() bool { return d.Status == DataVerified }

// CanBeUsedForResolution requires a verified, confident report from an
// active source.
func (d *Data) CanBeUsedForResolution() bool {
	return d.IsVerified() &&
		d.Confidence >= MinResolutionConfidence &&
		d.Source != nil && d.Source.IsActive
}

// Verify marks the report verified by verifierID.
func (d *Data) Verify(verifierID string, now time.Time) {
	d.Status = DataVerified
	d.VerifiedBy = verifierID
	d.VerifiedAt = &now
}

var ErrSourceNotFound = errors.New(errors.ErrCodeNotFound, "Oracle source not found")

// Repository stores sources and submissions.
type Repository interface {
	ListSources(ctx context.Context) ([]*Source, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	CreateData(ctx context.Context, d *Data) error
	ListByMarket(ctx context.Context, marketID string) ([]*Data, error)
	CountByMarket(ctx context.Context, marketID string) (int, error)
}

// DefaultSources are registered when the store starts empty.
func DefaultSources() []*Source {
	return []*Source{
		{ID: "chainlink", Name: "Chainlink", SourceType: SourceChainlink, Weight: 1.0, IsActive: true, ReliabilityScore: 0.95, Description: "Decentralized oracle network"},
		{ID: "reuters", Name: "Reuters", SourceType: SourceReuters, Weight: 0.9, IsActive: true, ReliabilityScore: 0.92, Description: "News agency reports"},
		{ID: "journalist", Name: "Verified Journalists", SourceType: SourceJournalist, Weight: 0.7, IsActive: true, ReliabilityScore: 0.8, Description: "Reports from accredited journalists"},
		{ID: "dao_vote", Name: "DAO Vote", SourceType: SourceDAOVote, Weight: 0.8, IsActive: true, ReliabilityScore: 0.85, Description: "Community governance vote"},
		{ID: "manual", Name: "Manual Submission", SourceType: SourceManual, Weight: 0.5, IsActive: true, ReliabilityScore: 0.7},
	}
}

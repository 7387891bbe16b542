package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/valuation"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusFinalized Status = "FINALIZED"
)

// Tag is a two-phase label. Tag entry records type, purity and net weight;
// finalization supplies gross weight, derives stone weight and hands the tag
// to the finalizer's batch.
type Tag struct {
	ID          domain.TagID    `json:"id"`
	Type        string          `json:"type"`
	Purity      string          `json:"purity"`
	NetWeight   decimal.Decimal `json:"net_weight"`
	GrossWeight decimal.Decimal `json:"gross_weight"`
	StoneWeight decimal.Decimal `json:"stone_weight"`
	Status      Status          `json:"status"`

	// Owner is the drafter while DRAFT and the finalizer afterwards.
	Owner       string           `json:"owner"`
	DraftedBy   string           `json:"drafted_by"`
	DraftedAt   time.Time        `json:"drafted_at"`
	Barcode     string           `json:"barcode,omitempty"`
	BatchID     string           `json:"batch_id,omitempty"`
	ProductID   domain.ProductID `json:"product_id,omitempty"`
	FinalizedBy string           `json:"finalized_by,omitempty"`
	FinalizedAt *time.Time       `json:"finalized_at,omitempty"`
}

func NewDraft(id domain.TagID, kind, purity string, net decimal.Decimal, by string, now time.Time) (*Tag, error) {
	if strings.TrimSpace(kind) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tag type is required")
	}
	if strings.TrimSpace(purity) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "purity is required")
	}
	if !net.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "net weight must be positive")
	}
	return &Tag{
		ID:        id,
		Type:      strings.TrimSpace(kind),
		Purity:    valuation.NormalizePurity(purity),
		NetWeight: net,
		Status:    StatusDraft,
		Owner:     by,
		DraftedBy: by,
		DraftedAt: now,
	}, nil
}

func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	c := *t
	if t.FinalizedAt != nil {
		f := *t.FinalizedAt
		c.FinalizedAt = &f
	}
	return &c
}

// CanFinalize requires DRAFT and gross ≥ net.
func (t *Tag) CanFinalize(gross decimal.Decimal) error {
	if t.Status != StatusDraft {
		return dErrors.New(dErrors.CodePrecondition, "tag is already finalized")
	}
	if !gross.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "gross weight must be positive")
	}
	if gross.LessThan(t.NetWeight) {
		return dErrors.New(dErrors.CodeValidation, "gross weight "+gross.String()+" is below net weight "+t.NetWeight.String())
	}
	return nil
}

// ApplyFinalize derives stone weight as gross − net and transfers ownership.
func (t *Tag) ApplyFinalize(gross decimal.Decimal, barcode, batchID string, productID domain.ProductID, by string, now time.Time) {
	t.GrossWeight = gross
	t.StoneWeight = gross.Sub(t.NetWeight)
	t.Barcode = barcode
	t.BatchID = batchID
	t.ProductID = productID
	t.Status = StatusFinalized
	t.Owner = by
	t.FinalizedBy = by
	t.FinalizedAt = &now
}

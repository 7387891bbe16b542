package models

import (
	"fmt"
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type Status string

const (
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
)

// Package ships part or all of one bill's products under a tracking id.
// Packages of the same bill never share a product.
type Package struct {
	ID         domain.PackageID   `json:"id"`
	TrackingID string             `json:"tracking_id"`
	BillID     domain.BillID      `json:"bill_id"`
	CustomerID domain.CustomerID  `json:"customer_id"`
	ProductIDs []domain.ProductID `json:"product_ids"`
	Status     Status             `json:"status"`

	DispatchedBy string     `json:"dispatched_by"`
	DispatchedAt time.Time  `json:"dispatched_at"`
	DeliveredBy  string     `json:"delivered_by,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

func NewPackage(id domain.PackageID, trackingID string, billID domain.BillID, customerID domain.CustomerID,
	productIDs []domain.ProductID, by string, now time.Time) (*Package, error) {
	if trackingID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tracking id is required")
	}
	if len(productIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "package needs at least one product")
	}
	seen := make(map[domain.ProductID]bool, len(productIDs))
	for _, pid := range productIDs {
		if seen[pid] {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "product listed twice in package")
		}
		seen[pid] = true
	}
	return &Package{
		ID:           id,
		TrackingID:   trackingID,
		BillID:       billID,
		CustomerID:   customerID,
		ProductIDs:   append([]domain.ProductID(nil), productIDs...),
		Status:       StatusDispatched,
		DispatchedBy: by,
		DispatchedAt: now,
	}, nil
}

func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	c := *p
	c.ProductIDs = append([]domain.ProductID(nil), p.ProductIDs...)
	if p.DeliveredAt != nil {
		t := *p.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}

func (p *Package) CanDeliver() error {
	if p.Status != StatusDispatched {
		return dErrors.New(dErrors.CodePrecondition, "package "+p.TrackingID+" is already delivered")
	}
	return nil
}

// VerifyContents requires the verified set to equal the package contents
// exactly. Repeating an id in verified does not count twice.
func (p *Package) VerifyContents(verified []domain.ProductID) error {
	want := make(map[domain.ProductID]bool, len(p.ProductIDs))
	for _, id := range p.ProductIDs {
		want[id] = true
	}
	got := make(map[domain.ProductID]bool, len(verified))
	for _, id := range verified {
		got[id] = true
	}
	var missing, extra int
	for id := range want {
		if !got[id] {
			missing++
		}
	}
	for id := range got {
		if !want[id] {
			extra++
		}
	}
	if missing == 0 && extra == 0 {
		return nil
	}
	return dErrors.New(dErrors.CodePrecondition,
		fmt.Sprintf("verification mismatch for %s: %d missing, %d unexpected", p.TrackingID, missing, extra))
}

func (p *Package) ApplyDeliver(by string, now time.Time) {
	p.Status = StatusDelivered
	p.DeliveredBy = by
	p.DeliveredAt = &now
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/valuation"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// Product is one physical piece. It is never deleted; SUSPENDED and
// DELIVERED are where it comes to rest.
type Product struct {
	ID          domain.ProductID `json:"id"`
	Barcode     string           `json:"barcode"`
	BatchID     string           `json:"batch_id,omitempty"`
	Type        string           `json:"type"`
	Purity      string           `json:"purity"`
	TotalWeight decimal.Decimal  `json:"total_weight"`
	StoneWeight decimal.Decimal  `json:"stone_weight"`
	GoldWeight  decimal.Decimal  `json:"gold_weight"`
	Status      Status           `json:"status"`

	CreatedBy               string            `json:"created_by"`
	AllottedBy              string            `json:"allotted_by,omitempty"`
	CustomerID              domain.CustomerID `json:"customer_id,omitempty"`
	DoubleVerifiedAllotment bool              `json:"double_verified_allotment"`
	VerifiedBy              string            `json:"verified_by,omitempty"`
	BillID                  domain.BillID     `json:"bill_id,omitempty"`
	PackageID               domain.PackageID  `json:"package_id,omitempty"`
	SuspendReason           string            `json:"suspend_reason,omitempty"`

	// Custody lists every holder change in order, starting with intake.
	Custody []CustodyEvent `json:"custody"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustodyEvent records who moved the product into a status.
type CustodyEvent struct {
	Status Status      `json:"status"`
	By     string      `json:"by"`
	Role   domain.Role `json:"role"`
	At     time.Time   `json:"at"`
}

// Actor identifies the principal applying a transition.
type Actor struct {
	Name string
	Role domain.Role
}

// NewProduct validates physical attributes and returns an IN_STOCK product.
func NewProduct(id domain.ProductID, barcode, batchID, kind, purity string,
	total, stone, gold decimal.Decimal, by Actor, now time.Time) (*Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "barcode is required")
	}
	if strings.TrimSpace(kind) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product type is required")
	}
	if strings.TrimSpace(purity) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "purity is required")
	}
	if !gold.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "gold weight must be positive")
	}
	if stone.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "stone weight must not be negative")
	}
	if !gold.Add(stone).Equal(total) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("gold weight %s plus stone weight %s must equal total weight %s", gold, stone, total))
	}
	p := &Product{
		ID:          id,
		Barcode:     barcode,
		BatchID:     strings.TrimSpace(batchID),
		Type:        strings.TrimSpace(kind),
		Purity:      valuation.NormalizePurity(purity),
		TotalWeight: total,
		StoneWeight: stone,
		GoldWeight:  gold,
		Status:      StatusInStock,
		CreatedBy:   by.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Custody = []CustodyEvent{{Status: StatusInStock, By: by.Name, Role: by.Role, At: now}}
	return p, nil
}

// FineWeight is the 24k-equivalent gold content.
func (p *Product) FineWeight() decimal.Decimal {
	return valuation.FineWeight(p.GoldWeight, p.Purity)
}

// Custodian is whoever last moved the product.
func (p *Product) Custodian() string {
	if len(p.Custody) == 0 {
		return p.CreatedBy
	}
	return p.Custody[len(p.Custody)-1].By
}

func (p *Product) HasCustomer() bool {
	return !p.CustomerID.IsNil()
}

// Clone returns a deep copy.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Custody = append([]CustodyEvent(nil), p.Custody...)
	return &c
}

func (p *Product) move(to Status, by Actor, now time.Time) {
	p.Status = to
	p.UpdatedAt = now
	p.Custody = append(p.Custody, CustodyEvent{Status: to, By: by.Name, Role: by.Role, At: now})
}

// CanAllot requires IN_STOCK. The customer's status is checked by the caller.
func (p *Product) CanAllot() error {
	return p.guard(StatusAllotted)
}

// ApplyAllot binds the product to a customer and clears any earlier verification.
func (p *Product) ApplyAllot(customerID domain.CustomerID, by Actor, now time.Time) {
	p.CustomerID = customerID
	p.AllottedBy = by.Name
	p.DoubleVerifiedAllotment = false
	p.VerifiedBy = ""
	p.move(StatusAllotted, by, now)
}

// CanVerifyAllotment requires ALLOTTED and a verifier other than the allotting admin.
// SYSTEM may verify its own allotments.
func (p *Product) CanVerifyAllotment(verifier string) error {
	if p.Status != StatusAllotted {
		return p.preconditionf("cannot verify allotment of a %s product", p.Status)
	}
	if p.DoubleVerifiedAllotment {
		return dErrors.New(dErrors.CodePrecondition, "allotment is already verified")
	}
	if verifier == p.AllottedBy && verifier != string(domain.RoleSystem) {
		return dErrors.New(dErrors.CodePrecondition, "allotment must be verified by a second admin")
	}
	return nil
}

// ApplyVerifyAllotment marks the second-admin check. Status does not change.
func (p *Product) ApplyVerifyAllotment(verifier string, now time.Time) {
	p.DoubleVerifiedAllotment = true
	p.VerifiedBy = verifier
	p.UpdatedAt = now
}

// CanConfirm requires ALLOTTED to the confirming customer.
func (p *Product) CanConfirm(customerID domain.CustomerID) error {
	if err := p.guard(StatusConfirmed); err != nil {
		return err
	}
	return p.ownedBy(customerID)
}

// CanReportMismatch allows a customer to dispute an item allotted or confirmed to them.
func (p *Product) CanReportMismatch(customerID domain.CustomerID) error {
	if p.Status != StatusAllotted && p.Status != StatusConfirmed {
		return p.preconditionf("cannot report a mismatch on a %s product", p.Status)
	}
	return p.ownedBy(customerID)
}

func (p *Product) ownedBy(customerID domain.CustomerID) error {
	if !customerID.IsNil() && customerID != p.CustomerID {
		return dErrors.New(dErrors.CodeForbidden, "product is not allotted to this customer")
	}
	return nil
}

func (p *Product) ApplyConfirm(by Actor, now time.Time) {
	p.move(StatusConfirmed, by, now)
}

// CanBill requires ALLOTTED or CONFIRMED to the billed customer.
func (p *Product) CanBill(customerID domain.CustomerID) error {
	if err := p.guard(StatusBilled); err != nil {
		return err
	}
	if p.CustomerID != customerID {
		return dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("product %s is not allotted to the billed customer", p.Barcode))
	}
	return nil
}

func (p *Product) ApplyBill(billID domain.BillID, by Actor, now time.Time) {
	p.BillID = billID
	p.move(StatusBilled, by, now)
}

// CanComplete requires BILLED.
func (p *Product) CanComplete() error {
	return p.guard(StatusCompleted)
}

func (p *Product) ApplyComplete(by Actor, now time.Time) {
	p.move(StatusCompleted, by, now)
}

// CanDispatch requires BILLED or COMPLETED and no existing package.
func (p *Product) CanDispatch() error {
	if err := p.guard(StatusDispatched); err != nil {
		return err
	}
	if !p.PackageID.IsNil() {
		return p.preconditionf("product %s is already packaged", p.Barcode)
	}
	return nil
}

func (p *Product) ApplyDispatch(pkg domain.PackageID, by Actor, now time.Time) {
	p.PackageID = pkg
	p.move(StatusDispatched, by, now)
}

func (p *Product) CanDeliver() error {
	return p.guard(StatusDelivered)
}

func (p *Product) ApplyDeliver(by Actor, now time.Time) {
	p.move(StatusDelivered, by, now)
}

// CanSuspend requires a non-terminal status.
func (p *Product) CanSuspend() error {
	return p.guard(StatusSuspended)
}

// ApplySuspend holds the product. The customer binding is kept as custody history.
func (p *Product) ApplySuspend(reason string, by Actor, now time.Time) {
	p.SuspendReason = reason
	p.move(StatusSuspended, by, now)
}

func (p *Product) guard(to Status) error {
	if !p.Status.CanTransitionTo(to) {
		return p.preconditionf("product %s cannot move from %s to %s", p.Barcode, p.Status, to)
	}
	return nil
}

func (p *Product) preconditionf(format string, args ...any) error {
	return dErrors.New(dErrors.CodePrecondition, fmt.Sprintf(format, args...))
}

package models

import (
	"strings"
	"time"

	"aurum/internal/valuation"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

type PaymentMode string

const (
	PaymentCash         PaymentMode = "CASH"
	PaymentCard         PaymentMode = "CARD"
	PaymentUPI          PaymentMode = "UPI"
	PaymentBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentCheque       PaymentMode = "CHEQUE"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch m := PaymentMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentBankTransfer, PaymentCheque:
		return m, nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "payment mode is required")
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unsupported payment mode: "+s)
	}
}

// Item is one priced product on a bill. The embedded line keeps every input
// so the figures can be recomputed exactly.
type Item struct {
	ProductID domain.ProductID `json:"product_id"`
	Barcode   string           `json:"barcode"`
	Type      string           `json:"type"`
	valuation.Line
}

// Split describes a bill's place in a split invoice run.
type Split struct {
	Group string `json:"group"`
	Part  int    `json:"part"`
	Of    int    `json:"of"`
}

// Bill is an invoice for one customer. Items and totals are fixed at
// creation; afterwards only the settlement flags and payment mode change.
type Bill struct {
	ID            domain.BillID         `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	CustomerID    domain.CustomerID     `json:"customer_id"`
	Mode          valuation.PricingMode `json:"mode"`
	Items         []Item                `json:"items"`
	Totals        valuation.Totals      `json:"totals"`
	Split         *Split                `json:"split,omitempty"`

	PaymentReceived bool        `json:"payment_received"`
	GoldReceived    bool        `json:"gold_received"`
	PaymentMode     PaymentMode `json:"payment_mode,omitempty"`
	Status          Status      `json:"status"`

	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewBill assembles a PENDING bill with totals summed from its items.
func NewBill(id domain.BillID, invoice string, customerID domain.CustomerID, mode valuation.PricingMode,
	items []Item, createdBy string, now time.Time) (*Bill, error) {
	if strings.TrimSpace(invoice) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invoice number is required")
	}
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer is required")
	}
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "bill needs at least one item")
	}
	lines := make([]valuation.Line, len(items))
	seen := make(map[domain.ProductID]bool, len(items))
	for i, it := range items {
		if seen[it.ProductID] {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "product appears twice on the bill")
		}
		seen[it.ProductID] = true
		if it.Mode != mode {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "item pricing mode differs from bill")
		}
		lines[i] = it.Line
	}
	return &Bill{
		ID:            id,
		InvoiceNumber: strings.TrimSpace(invoice),
		CustomerID:    customerID,
		Mode:          mode,
		Items:         append([]Item(nil), items...),
		Totals:        valuation.Sum(lines),
		Status:        StatusPending,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	c := *b
	c.Items = append([]Item(nil), b.Items...)
	if b.Split != nil {
		s := *b.Split
		c.Split = &s
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (b *Bill) ProductIDs() []domain.ProductID {
	ids := make([]domain.ProductID, len(b.Items))
	for i, it := range b.Items {
		ids[i] = it.ProductID
	}
	return ids
}

func (b *Bill) Contains(id domain.ProductID) bool {
	for _, it := range b.Items {
		if it.ProductID == id {
			return true
		}
	}
	return false
}

func (b *Bill) IsCompleted() bool {
	return b.Status == StatusCompleted
}

// CanSettlePayment requires the payment flag to still be open.
func (b *Bill) CanSettlePayment() error {
	if b.PaymentReceived {
		return dErrors.New(dErrors.CodePrecondition, "payment already received for "+b.InvoiceNumber)
	}
	return nil
}

// ApplyPayment sets the payment flag and reports whether the bill just completed.
func (b *Bill) ApplyPayment(mode PaymentMode, now time.Time) (completed bool) {
	b.PaymentReceived = true
	b.PaymentMode = mode
	return b.refresh(now)
}

// CanToggleGold allows flipping the gold flag until the bill completes.
func (b *Bill) CanToggleGold() error {
	if b.IsCompleted() {
		return dErrors.New(dErrors.CodePrecondition, "bill "+b.InvoiceNumber+" is completed")
	}
	return nil
}

// ApplyToggleGold flips the gold flag and reports whether the bill just completed.
func (b *Bill) ApplyToggleGold(now time.Time) (completed bool) {
	b.GoldReceived = !b.GoldReceived
	return b.refresh(now)
}

// refresh keeps Status == COMPLETED iff both flags are set.
func (b *Bill) refresh(now time.Time) bool {
	b.UpdatedAt = now
	if b.PaymentReceived && b.GoldReceived {
		if b.Status != StatusCompleted {
			b.Status = StatusCompleted
			b.CompletedAt = &now
			return true
		}
		return false
	}
	b.Status = StatusPending
	b.CompletedAt = nil
	return false
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusBanned  Status = "BANNED"
)

// Customer is a counterparty that can receive allotments once ACTIVE.
type Customer struct {
	ID     domain.CustomerID `json:"id"`
	Name   string            `json:"name"`
	Phone  string            `json:"phone,omitempty"`
	City   string            `json:"city,omitempty"`
	Status Status            `json:"status"`
	// TotalGoldInventory is the gold weight currently allotted to the
	// customer. It is informational and never used for pricing.
	TotalGoldInventory decimal.Decimal `json:"total_gold_inventory"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewCustomer builds a customer in the given initial status. Self
// registration passes StatusPending; staff creation passes StatusActive.
func NewCustomer(id domain.CustomerID, name, phone, city string, status Status, createdBy string, now time.Time) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer name is required")
	}
	if status != StatusPending && status != StatusActive {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer must start PENDING or ACTIVE")
	}
	return &Customer{
		ID:                 id,
		Name:               name,
		Phone:              strings.TrimSpace(phone),
		City:               strings.TrimSpace(city),
		Status:             status,
		TotalGoldInventory: decimal.Zero,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (c *Customer) CanReceiveAllotment() error {
	if c.Status != StatusActive {
		return dErrors.New(dErrors.CodePrecondition, "customer "+c.Name+" is "+string(c.Status)+", not ACTIVE")
	}
	return nil
}

func (c *Customer) CanActivate() error {
	if c.Status == StatusActive {
		return dErrors.New(dErrors.CodePrecondition, "customer is already active")
	}
	return nil
}

func (c *Customer) ApplyActivate(now time.Time) {
	c.Status = StatusActive
	c.UpdatedAt = now
}

func (c *Customer) CanBan() error {
	if c.Status == StatusBanned {
		return dErrors.New(dErrors.CodePrecondition, "customer is already banned")
	}
	return nil
}

func (c *Customer) ApplyBan(now time.Time) {
	c.Status = StatusBanned
	c.UpdatedAt = now
}

// AddGold increases the allotted gold aggregate.
func (c *Customer) AddGold(weight decimal.Decimal, now time.Time) {
	c.TotalGoldInventory = c.TotalGoldInventory.Add(weight)
	c.UpdatedAt = now
}

// ReleaseGold decreases the aggregate, never below zero.
func (c *Customer) ReleaseGold(weight decimal.Decimal, now time.Time) {
	c.TotalGoldInventory = decimal.Max(decimal.Zero, c.TotalGoldInventory.Sub(weight))
	c.UpdatedAt = now
}

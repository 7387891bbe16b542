package models

import (
	"strings"

	dErrors "aurum/pkg/domain-errors"
)

// Status is a product's position in the custody chain.
type Status string

const (
	StatusInStock    Status = "IN_STOCK"
	StatusAllotted   Status = "ALLOTTED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusBilled     Status = "BILLED"
	StatusCompleted  Status = "COMPLETED"
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
	StatusSuspended  Status = "SUSPENDED"
)

// transitions is the complete product state machine. Every non-terminal
// state can be suspended; DELIVERED and SUSPENDED are terminal.
var transitions = map[Status][]Status{
	StatusInStock:    {StatusAllotted, StatusSuspended},
	StatusAllotted:   {StatusConfirmed, StatusBilled, StatusSuspended},
	StatusConfirmed:  {StatusBilled, StatusSuspended},
	StatusBilled:     {StatusCompleted, StatusDispatched, StatusSuspended},
	StatusCompleted:  {StatusDispatched, StatusSuspended},
	StatusDispatched: {StatusDelivered, StatusSuspended},
	StatusDelivered:  nil,
	StatusSuspended:  nil,
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// HoldsCustomer reports whether products in this status count toward a
// customer's gold inventory.
func (s Status) HoldsCustomer() bool {
	switch s {
	case StatusAllotted, StatusConfirmed, StatusBilled, StatusCompleted, StatusDispatched, StatusDelivered:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts any case; empty input is a validation error.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown product status: "+v)
	}
	return s, nil
}

// AllStatuses lists states in chain order.
func AllStatuses() []Status {
	return []Status{StatusInStock, StatusAllotted, StatusConfirmed, StatusBilled,
		StatusCompleted, StatusDispatched, StatusDelivered, StatusSuspended}
}

// Package audit defines the append-only audit entry and the incident
// lifecycle attached to a fixed set of action kinds.
package audit

import (
	"context"
	"sort"
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

// Category classifies entries for routing to sinks and retention.
type Category string

const (
	// CategorySecurity covers access-gate, credential and duplicate-asset alerts.
	CategorySecurity Category = "security"
	// CategoryCompliance covers custody changes with regulatory weight
	// (allotment, billing, settlement, delivery, user lifecycle).
	CategoryCompliance Category = "compliance"
	// CategoryOperations covers routine activity.
	CategoryOperations Category = "operations"
)

// Action names what a command did.
type Action string

const (
	// Incident kinds. Entries with these actions are created OPEN.
	ActionSecurityAlert    Action = "SECURITY_ALERT"
	ActionCustomerMismatch Action = "CUSTOMER_MISMATCH"
	ActionUserRemoved      Action = "USER_REMOVED"
	ActionBulkStatusChange Action = "BULK_STATUS_CHANGE"

	// Inventory
	ActionProductIntake     Action = "PRODUCT_INTAKE"
	ActionProductAllotted   Action = "PRODUCT_ALLOTTED"
	ActionBulkAllotment     Action = "BULK_ALLOTMENT"
	ActionAllotmentVerified Action = "ALLOTMENT_VERIFIED"
	ActionCustomerConfirmed Action = "CUSTOMER_CONFIRMED"
	ActionProductScanned    Action = "PRODUCT_SCANNED"

	// Billing
	ActionBillCreated         Action = "BILL_CREATED"
	ActionSplitBillsCreated   Action = "SPLIT_BILLS_CREATED"
	ActionPaymentSettled      Action = "PAYMENT_SETTLED"
	ActionGoldReceivedToggled Action = "GOLD_RECEIVED_TOGGLED"
	ActionBillCompleted       Action = "BILL_COMPLETED"

	// Logistics
	ActionPackageDispatched Action = "PACKAGE_DISPATCHED"
	ActionPackageDelivered  Action = "PACKAGE_DELIVERED"

	// Tagging
	ActionTagDrafted   Action = "TAG_DRAFTED"
	ActionTagFinalized Action = "TAG_FINALIZED"

	// Customers
	ActionCustomerRegistered Action = "CUSTOMER_REGISTERED"
	ActionCustomerCreated    Action = "CUSTOMER_CREATED"
	ActionCustomerActivated  Action = "CUSTOMER_ACTIVATED"
	ActionCustomerBanned     Action = "CUSTOMER_BANNED"

	// Access and settings
	ActionUserCreated       Action = "USER_CREATED"
	ActionLogin             Action = "LOGIN"
	ActionLogout            Action = "LOGOUT"
	ActionOperationsToggled Action = "OPERATIONS_TOGGLED"
	ActionGoldRateUpdated   Action = "GOLD_RATE_UPDATED"
	ActionIncidentResolved  Action = "INCIDENT_RESOLVED"
)

var incidentActions = map[Action]bool{
	ActionSecurityAlert:    true,
	ActionCustomerMismatch: true,
	ActionUserRemoved:      true,
	ActionBulkStatusChange: true,
}

var actionCategories = map[Action]Category{
	ActionSecurityAlert:     CategorySecurity,
	ActionOperationsToggled: CategorySecurity,
	ActionLogin:             CategorySecurity,
	ActionLogout:            CategorySecurity,
	ActionIncidentResolved:  CategorySecurity,

	ActionCustomerMismatch:  CategoryCompliance,
	ActionUserRemoved:       CategoryCompliance,
	ActionUserCreated:       CategoryCompliance,
	ActionBulkStatusChange:  CategoryCompliance,
	ActionProductAllotted:   CategoryCompliance,
	ActionBulkAllotment:     CategoryCompliance,
	ActionBillCreated:       CategoryCompliance,
	ActionSplitBillsCreated: CategoryCompliance,
	ActionPaymentSettled:    CategoryCompliance,
	ActionBillCompleted:     CategoryCompliance,
	ActionPackageDelivered:  CategoryCompliance,
	ActionGoldRateUpdated:   CategoryCompliance,
}

// IsIncident reports whether entries with this action require resolution.
func (a Action) IsIncident() bool {
	return incidentActions[a]
}

// Category returns the routing category. Unknown actions are operations.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// IncidentActions lists the incident kinds in a stable order.
func IncidentActions() []Action {
	out := make([]Action, 0, len(incidentActions))
	for a := range incidentActions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Entry is an immutable audit record. The only permitted change after
// commit is ApplyResolve on an OPEN incident.
type Entry struct {
	ID          domain.AuditID    `json:"id"`
	Seq         uint64            `json:"seq"`
	Action      Action            `json:"action"`
	Category    Category          `json:"category"`
	PerformedBy string            `json:"performed_by"`
	Role        domain.Role       `json:"role"`
	Timestamp   time.Time         `json:"timestamp"`
	Details     string            `json:"details"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`

	Status     Status     `json:"status"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// NewEntry builds an entry attributed to the actor in ctx, or SYSTEM.
// Seq is left zero; the catalog assigns it at commit.
func NewEntry(ctx context.Context, action Action, details string) Entry {
	status := StatusResolved
	if action.IsIncident() {
		status = StatusOpen
	}
	return Entry{
		ID:          domain.NewAuditID(),
		Action:      action,
		Category:    action.Category(),
		PerformedBy: requestcontext.ActorName(ctx),
		Role:        requestcontext.ActorRole(ctx),
		Timestamp:   requestcontext.Now(ctx),
		Details:     details,
		RequestID:   requestcontext.RequestID(ctx),
		Status:      status,
	}
}

// With returns a copy of the entry carrying an extra metadata pair.
func (e Entry) With(key, value string) Entry {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

func (e Entry) IsOpen() bool {
	return e.Status == StatusOpen
}

// CanResolve reports whether the entry is an open incident.
func (e Entry) CanResolve() error {
	if !e.Action.IsIncident() {
		return dErrors.New(dErrors.CodePrecondition, "audit entry is not an incident")
	}
	if e.Status != StatusOpen {
		return dErrors.New(dErrors.CodePrecondition, "incident is already resolved")
	}
	return nil
}

// ApplyResolve moves an open incident to RESOLVED. Call CanResolve first.
func (e *Entry) ApplyResolve(by string, now time.Time) {
	e.Status = StatusResolved
	e.ResolvedAt = &now
	e.ResolvedBy = by
}

// Clone returns a deep copy safe to hand outside the store lock.
func (e Entry) Clone() Entry {
	if e.Metadata != nil {
		md := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		e.Metadata = md
	}
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		e.ResolvedAt = &t
	}
	return e
}

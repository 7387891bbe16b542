// Package policy is the single capability check consulted by every command
// before it mutates anything. Permissions are keyed on {role, action}.
package policy

import (
	"context"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

// Action names a guarded command.
type Action string

const (
	ActionIntake          Action = "inventory.intake"
	ActionAllot           Action = "inventory.allot"
	ActionVerifyAllotment Action = "inventory.verify_allotment"
	ActionConfirm         Action = "inventory.confirm"
	ActionSuspend         Action = "inventory.suspend"
	ActionScan            Action = "inventory.scan"
	ActionViewInventory   Action = "inventory.view"

	ActionCreateBill  Action = "billing.create"
	ActionSettleBill  Action = "billing.settle"
	ActionViewBilling Action = "billing.view"

	ActionDispatch      Action = "logistics.dispatch"
	ActionDeliver       Action = "logistics.deliver"
	ActionViewLogistics Action = "logistics.view"

	ActionDraftTag    Action = "tagging.draft"
	ActionFinalizeTag Action = "tagging.finalize"
	ActionViewTags    Action = "tagging.view"

	ActionManageCustomers Action = "customer.manage"
	ActionViewCustomers   Action = "customer.view"

	ActionManageUsers     Action = "auth.manage_users"
	ActionSetOperations   Action = "settings.operations"
	ActionSetGoldRate     Action = "settings.gold_rate"
	ActionViewSettings    Action = "settings.view"
	ActionViewAudit       Action = "audit.view"
	ActionResolveIncident Action = "audit.resolve"
)

var (
	staff = []domain.Role{
		domain.RoleOwner, domain.RoleAdmin, domain.RoleBilling,
		domain.RoleDispatch, domain.RoleTagEntry, domain.RoleTagFinalize,
	}
	admins = []domain.Role{domain.RoleOwner, domain.RoleAdmin}
)

func roles(groups ...[]domain.Role) map[domain.Role]bool {
	out := make(map[domain.Role]bool)
	for _, g := range groups {
		for _, r := range g {
			out[r] = true
		}
	}
	return out
}

// permissions is the {role, action} table. OWNER appears in every row.
var permissions = map[Action]map[domain.Role]bool{
	ActionIntake:          roles(admins),
	ActionAllot:           roles(admins),
	ActionVerifyAllotment: roles(admins),
	ActionConfirm:         roles(admins, []domain.Role{domain.RoleCustomer}),
	ActionSuspend:         roles(admins),
	ActionScan:            roles(staff),
	ActionViewInventory:   roles(staff, []domain.Role{domain.RoleCustomer}),

	ActionCreateBill:  roles(admins, []domain.Role{domain.RoleBilling}),
	ActionSettleBill:  roles(admins, []domain.Role{domain.RoleBilling}),
	ActionViewBilling: roles(admins, []domain.Role{domain.RoleBilling, domain.RoleDispatch, domain.RoleCustomer}),

	ActionDispatch:      roles(admins, []domain.Role{domain.RoleDispatch}),
	ActionDeliver:       roles(admins, []domain.Role{domain.RoleDispatch}),
	ActionViewLogistics: roles(admins, []domain.Role{domain.RoleDispatch, domain.RoleBilling}),

	ActionDraftTag:    roles(admins, []domain.Role{domain.RoleTagEntry}),
	ActionFinalizeTag: roles(admins, []domain.Role{domain.RoleTagFinalize}),
	ActionViewTags:    roles(admins, []domain.Role{domain.RoleTagEntry, domain.RoleTagFinalize}),

	ActionManageCustomers: roles(admins),
	ActionViewCustomers:   roles(admins, []domain.Role{domain.RoleBilling, domain.RoleDispatch}),

	ActionManageUsers:     roles([]domain.Role{domain.RoleOwner}),
	ActionSetOperations:   roles([]domain.Role{domain.RoleOwner}),
	ActionSetGoldRate:     roles([]domain.Role{domain.RoleOwner}),
	ActionViewSettings:    roles(staff),
	ActionViewAudit:       roles(admins),
	ActionResolveIncident: roles([]domain.Role{domain.RoleOwner}),
}

// SessionChecker reports whether a session may still issue commands.
// catalog.Tx satisfies it.
type SessionChecker interface {
	SessionActive(id domain.SessionID) bool
}

// Allowed reports whether role may perform action. SYSTEM may do anything.
func Allowed(role domain.Role, action Action) bool {
	if role == domain.RoleSystem {
		return true
	}
	return permissions[action][role]
}

// Authorize checks the actor in ctx against action. When ctx carries a
// session id the session must still be active, so commands issued on a
// revoked session are rejected even if the token itself is unexpired.
// Errors: CodeUnauthorized for a dead session, CodeForbidden for a role
// without the capability.
func Authorize(ctx context.Context, sessions SessionChecker, action Action) error {
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		return nil
	}
	if sid := requestcontext.SessionID(ctx); !sid.IsNil() {
		if sessions == nil || !sessions.SessionActive(sid) {
			return dErrors.New(dErrors.CodeUnauthorized, "session is no longer active")
		}
	}
	if !Allowed(actor.Role, action) {
		return dErrors.New(dErrors.CodeForbidden, "role "+actor.Role.String()+" may not perform "+string(action))
	}
	return nil
}

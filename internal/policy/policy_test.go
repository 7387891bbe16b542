package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

type sessionSet map[domain.SessionID]bool

func (s sessionSet) SessionActive(id domain.SessionID) bool { return s[id] }

func TestAllowed(t *testing.T) {
	t.Run("owner may do everything", func(t *testing.T) {
		for action := range permissions {
			assert.True(t, Allowed(domain.RoleOwner, action), action)
		}
	})

	t.Run("system may do everything", func(t *testing.T) {
		assert.True(t, Allowed(domain.RoleSystem, ActionResolveIncident))
	})

	tests := []struct {
		role   domain.Role
		action Action
		want   bool
	}{
		{domain.RoleAdmin, ActionAllot, true},
		{domain.RoleAdmin, ActionSetOperations, false},
		{domain.RoleBilling, ActionCreateBill, true},
		{domain.RoleBilling, ActionAllot, false},
		{domain.RoleDispatch, ActionDeliver, true},
		{domain.RoleTagEntry, ActionDraftTag, true},
		{domain.RoleTagEntry, ActionFinalizeTag, false},
		{domain.RoleTagFinalize, ActionFinalizeTag, true},
		{domain.RoleCustomer, ActionConfirm, true},
		{domain.RoleCustomer, ActionCreateBill, false},
		{domain.Role("INTRUDER"), ActionViewInventory, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+" "+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.action))
		})
	}
}

func TestAuthorize(t *testing.T) {
	live := domain.NewSessionID()
	dead := domain.NewSessionID()
	sessions := sessionSet{live: true}
	admin := requestcontext.WithActor(context.Background(), requestcontext.Actor{Name: "asha", Role: domain.RoleAdmin})

	t.Run("no actor is system", func(t *testing.T) {
		require.NoError(t, Authorize(context.Background(), nil, ActionSetOperations))
	})

	t.Run("active session with capability", func(t *testing.T) {
		ctx := requestcontext.WithSessionID(admin, live)
		require.NoError(t, Authorize(ctx, sessions, ActionAllot))
	})

	t.Run("revoked session is unauthorized", func(t *testing.T) {
		ctx := requestcontext.WithSessionID(admin, dead)
		err := Authorize(ctx, sessions, ActionAllot)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing capability is forbidden", func(t *testing.T) {
		ctx := requestcontext.WithSessionID(admin, live)
		err := Authorize(ctx, sessions, ActionResolveIncident)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

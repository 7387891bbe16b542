package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

func TestNewEntry(t *testing.T) {
	now := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	t.Run("incident kinds start open", func(t *testing.T) {
		for _, action := range IncidentActions() {
			e := NewEntry(context.Background(), action, "x")
			assert.Equal(t, StatusOpen, e.Status, action)
		}
	})

	t.Run("other actions start resolved", func(t *testing.T) {
		e := NewEntry(context.Background(), ActionBillCreated, "INV-000001")
		assert.Equal(t, StatusResolved, e.Status)
		assert.Nil(t, e.ResolvedAt)
		assert.Equal(t, CategoryCompliance, e.Category)
	})

	t.Run("system when no actor", func(t *testing.T) {
		e := NewEntry(context.Background(), ActionProductIntake, "B1")
		assert.Equal(t, "SYSTEM", e.PerformedBy)
		assert.Equal(t, domain.RoleSystem, e.Role)
	})

	t.Run("actor and clock come from context", func(t *testing.T) {
		ctx := requestcontext.WithTime(context.Background(), now)
		ctx = requestcontext.WithActor(ctx, requestcontext.Actor{Name: "ravi", Role: domain.RoleAdmin})
		e := NewEntry(ctx, ActionProductAllotted, "A1 to C1")
		assert.Equal(t, "ravi", e.PerformedBy)
		assert.Equal(t, domain.RoleAdmin, e.Role)
		assert.Equal(t, now, e.Timestamp)
	})
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	e := NewEntry(context.Background(), ActionSecurityAlert, "closed hours login")
	require.NoError(t, e.CanResolve())
	e.ApplyResolve("owner", now)
	assert.Equal(t, StatusResolved, e.Status)
	require.NotNil(t, e.ResolvedAt)
	assert.Equal(t, now, *e.ResolvedAt)

	err := e.CanResolve()
	assert.True(t, dErrors.HasCode(err, dErrors.CodePrecondition))

	plain := NewEntry(context.Background(), ActionLogin, "")
	assert.True(t, dErrors.HasCode(plain.CanResolve(), dErrors.CodePrecondition))
}

func TestWithDoesNotAlias(t *testing.T) {
	base := NewEntry(context.Background(), ActionSecurityAlert, "dup").With("barcode", "B2")
	other := base.With("status", "IN_STOCK")
	assert.Len(t, base.Metadata, 1)
	assert.Len(t, other.Metadata, 2)

	clone := other.Clone()
	clone.Metadata["barcode"] = "changed"
	assert.Equal(t, "B2", other.Metadata["barcode"])
}

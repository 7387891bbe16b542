package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aurum/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseProductID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseProductID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseProductID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseProductID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ProductID(validUUID), id)
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE products;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBillID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	parsers := map[string]func(string) error{
		"product":  func(s string) error { _, err := ParseProductID(s); return err },
		"customer": func(s string) error { _, err := ParseCustomerID(s); return err },
		"user":     func(s string) error { _, err := ParseUserID(s); return err },
		"session":  func(s string) error { _, err := ParseSessionID(s); return err },
		"bill":     func(s string) error { _, err := ParseBillID(s); return err },
		"package":  func(s string) error { _, err := ParsePackageID(s); return err },
		"tag":      func(s string) error { _, err := ParseTagID(s); return err },
		"audit":    func(s string) error { _, err := ParseAuditID(s); return err },
	}

	for name, parse := range parsers {
		t.Run(name+" accepts valid UUID", func(t *testing.T) {
			require.NoError(t, parse(validUUID))
		})
		for _, input := range []string{"", "invalid", uuid.Nil.String()} {
			t.Run(name+" rejects "+input, func(t *testing.T) {
				require.Error(t, parse(input))
			})
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	original := NewBillID()
	text, err := original.MarshalText()
	require.NoError(t, err)

	var decoded BillID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, original, decoded)
}

func TestRoles(t *testing.T) {
	t.Run("system is never assignable", func(t *testing.T) {
		_, err := ParseRole(string(RoleSystem))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("owner and customer bypass the operations gate", func(t *testing.T) {
		assert.False(t, RoleOwner.IsGated())
		assert.False(t, RoleCustomer.IsGated())
		assert.False(t, RoleSystem.IsGated())
	})

	t.Run("staff roles are gated", func(t *testing.T) {
		for _, r := range []Role{RoleAdmin, RoleBilling, RoleDispatch, RoleTagEntry, RoleTagFinalize} {
			assert.True(t, r.IsGated(), r)
		}
	})
}

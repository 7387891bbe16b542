package models

import (
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusRevoked SessionStatus = "REVOKED"
)

type RevocationReason string

const (
	RevocationReasonLogout           RevocationReason = "logout"
	RevocationReasonOperationsClosed RevocationReason = "operations_closed"
	RevocationReasonUserRemoved      RevocationReason = "user_removed"
)

func (r RevocationReason) String() string { return string(r) }

// Session is one authenticated login. Sessions live in the catalog so that
// revocation commits together with the change that caused it.
type Session struct {
	ID         domain.SessionID  `json:"id"`
	UserID     domain.UserID     `json:"user_id"`
	Username   string            `json:"username"`
	Role       domain.Role       `json:"role"`
	CustomerID domain.CustomerID `json:"customer_id,omitempty"`
	Device     string            `json:"device,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Status     SessionStatus     `json:"status"`

	// Fingerprint hashes the login User-Agent; empty when fingerprinting is off.
	Fingerprint string `json:"-"`

	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
	RevokedAt        *time.Time       `json:"revoked_at,omitempty"`
	RevocationReason RevocationReason `json:"revocation_reason,omitempty"`
}

func NewSession(id domain.SessionID, user *User, device, clientIP string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:         id,
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		CustomerID: user.CustomerID,
		Device:     device,
		ClientIP:   clientIP,
		Status:     SessionStatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}

// IsActive reports whether the session may still be used at now.
func (s *Session) IsActive(now time.Time) bool {
	return s.Status == SessionStatusActive && now.Before(s.ExpiresAt)
}

func (s *Session) CanRevoke() error {
	if s.Status == SessionStatusRevoked {
		return dErrors.New(dErrors.CodePrecondition, "session already revoked")
	}
	return nil
}

func (s *Session) ApplyRevocation(reason RevocationReason, now time.Time) {
	s.Status = SessionStatusRevoked
	s.RevokedAt = &now
	s.RevocationReason = reason
}

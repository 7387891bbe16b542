package models

import (
	"strings"
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusRemoved UserStatus = "REMOVED"
)

// User is a staff or customer login.
type User struct {
	ID           domain.UserID     `json:"id"`
	Username     string            `json:"username"`
	PasswordHash string            `json:"-"`
	Role         domain.Role       `json:"role"`
	CustomerID   domain.CustomerID `json:"customer_id,omitempty"`
	Status       UserStatus        `json:"status"`
	// UnauthorizedAttempts counts logins refused by the operations gate.
	UnauthorizedAttempts int        `json:"unauthorized_attempts"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	RemovedAt            *time.Time `json:"removed_at,omitempty"`
	LastLoginAt          *time.Time `json:"last_login_at,omitempty"`
}

// NormalizeUsername lower-cases and trims so lookups are case-insensitive.
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func NewUser(id domain.UserID, username, passwordHash string, role domain.Role, customerID domain.CustomerID, now time.Time) (*User, error) {
	username = NormalizeUsername(username)
	if len(username) < 3 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be at least 3 characters")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if role == domain.RoleCustomer && customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer logins must be linked to a customer")
	}
	if role != domain.RoleCustomer && !customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "only customer logins can be linked to a customer")
	}
	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CustomerID:   customerID,
		Status:       UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.RemovedAt != nil {
		t := *u.RemovedAt
		c.RemovedAt = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsGated reports whether the user may only log in while operations are open.
func (u *User) IsGated() bool {
	return u.Role.IsGated()
}

func (u *User) RecordUnauthorizedAttempt(now time.Time) {
	u.UnauthorizedAttempts++
	u.UpdatedAt = now
}

func (u *User) RecordLogin(now time.Time) {
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

func (u *User) CanRemove() error {
	if u.Status == UserStatusRemoved {
		return dErrors.New(dErrors.CodePrecondition, "user is already removed")
	}
	return nil
}

func (u *User) ApplyRemove(now time.Time) {
	u.Status = UserStatusRemoved
	u.RemovedAt = &now
	u.UpdatedAt = now
}

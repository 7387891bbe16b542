package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"aurum/internal/auth/models"
	"aurum/internal/auth/secrets"
	"aurum/internal/catalog"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

type CreateUserInput struct {
	Username string
	Password string
	Role     domain.Role
	// CustomerID links a CUSTOMER login to its customer record.
	CustomerID domain.CustomerID
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	role, err := domain.ParseRole(string(in.Role))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	hash, err := secrets.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(domain.NewUserID(), in.Username, hash, role, in.CustomerID, requestcontext.Now(ctx))
	if err != nil {
		return nil, command.Translate(err)
	}

	err = s.runner.Update(ctx, "auth.create_user", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionManageUsers); err != nil {
			return err
		}
		return insertUser(ctx, tx, user, fmt.Sprintf("user %s created with role %s", user.Username, user.Role))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Bootstrap creates the first owner account. It does nothing once an active
// owner exists and reports whether an account was created.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return false, err
	}
	user, err := models.NewUser(domain.NewUserID(), username, hash, domain.RoleOwner, domain.CustomerID{}, requestcontext.Now(ctx))
	if err != nil {
		return false, command.Translate(err)
	}

	created := false
	err = s.runner.Update(ctx, "auth.bootstrap_owner", func(tx *catalog.Tx) error {
		owners := tx.Users(func(u *models.User) bool { return u.Role == domain.RoleOwner && u.IsActive() })
		if len(owners) > 0 {
			return nil
		}
		if err := insertUser(ctx, tx, user, fmt.Sprintf("bootstrap owner %s created", user.Username)); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func insertUser(ctx context.Context, tx *catalog.Tx, user *models.User, details string) error {
	if user.Role == domain.RoleCustomer {
		if _, err := tx.Customer(user.CustomerID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "customer not found")
			}
			return err
		}
	}
	if err := tx.InsertUser(user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "username is already taken")
		}
		return err
	}
	tx.Append(audit.NewEntry(ctx, audit.ActionUserCreated, details).
		With("user_id", user.ID.String()).
		With("username", user.Username).
		With("user_role", user.Role.String()))
	return nil
}

// RemoveUser deactivates an account and revokes its sessions in the same
// commit. The removal is recorded as an OPEN USER_REMOVED incident.
func (s *Service) RemoveUser(ctx context.Context, id domain.UserID) (*models.User, error) {
	now := requestcontext.Now(ctx)
	actor, _ := requestcontext.ActorFrom(ctx)

	var (
		removed *models.User
		revoked int
	)
	err := s.runner.Update(ctx, "auth.remove_user", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionManageUsers); err != nil {
			return err
		}
		user, err := tx.User(id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return err
		}
		if user.ID == actor.UserID {
			return dErrors.New(dErrors.CodePrecondition, "cannot remove your own account")
		}
		if err := user.CanRemove(); err != nil {
			return err
		}
		user.ApplyRemove(now)
		tx.PutUser(user)
		revoked = revokeSessions(tx, func(sess *models.Session) bool { return sess.UserID == user.ID },
			models.RevocationReasonUserRemoved, now)
		tx.Append(audit.NewEntry(ctx, audit.ActionUserRemoved,
			fmt.Sprintf("user %s (%s) removed", user.Username, user.Role)).
			With("user_id", user.ID.String()).
			With("username", user.Username).
			With("user_role", user.Role.String()).
			With("sessions_revoked", strconv.Itoa(revoked)))
		removed = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.Metrics().AddSessionsInvalidated(revoked)
	return removed, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.runner.View(ctx, "auth.list_users", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionManageUsers); err != nil {
			return err
		}
		users = tx.Users(nil)
		return nil
	})
	return users, err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"aurum/internal/auth/models"
	"aurum/internal/auth/secrets"
	"aurum/internal/catalog"
	"aurum/internal/platform/command"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *models.User    `json:"user"`
	Session   *models.Session `json:"session"`
}

// Login checks credentials and opens a session.
//
// Errors: CodeUnauthorized for bad credentials (the second in a row also
// commits a SECURITY_ALERT), CodeSecurityEscalation for a gated role while
// operations are closed.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = models.NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}

	var user *models.User
	if err := s.runner.View(ctx, "auth.lookup_user", func(tx *catalog.Tx) error {
		if u, ok := tx.UserByUsername(username); ok && u.IsActive() {
			user = u
		}
		return nil
	}); err != nil {
		return nil, err
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	if err := secrets.Verify(password, hash); err != nil {
		if !errors.Is(err, secrets.ErrMismatch) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
		}
		return nil, s.credentialFailure(ctx, username)
	}
	if user == nil {
		return nil, s.credentialFailure(ctx, username)
	}
	if err := s.lockouts.Clear(ctx, username); err != nil {
		s.logger.WarnContext(ctx, "failed to clear credential failures", "username", username, "error", err)
	}

	now := requestcontext.Now(ctx)
	descriptor := requestcontext.Device(ctx)
	userCtx := requestcontext.WithActor(ctx, requestcontext.Actor{
		UserID:     user.ID,
		Name:       user.Username,
		Role:       user.Role,
		CustomerID: user.CustomerID,
	})

	var session *models.Session
	err := s.runner.Update(userCtx, "auth.login", func(tx *catalog.Tx) error {
		u, ok := tx.UserByUsername(username)
		if !ok || !u.IsActive() || u.PasswordHash != hash {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		if u.IsGated() && !tx.Settings().OperationsOpen {
			u.RecordUnauthorizedAttempt(now)
			tx.PutUser(u)
			tx.Append(audit.NewEntry(userCtx, audit.ActionSecurityAlert,
				fmt.Sprintf("%s (%s) attempted to log in outside operating hours from %s", u.Username, u.Role, deviceOrUnknown(descriptor))).
				With("reason", "operations_closed").
				With("username", u.Username).
				With("user_role", u.Role.String()).
				With("device", descriptor).
				With("client_ip", requestcontext.ClientIP(ctx)).
				With("unauthorized_attempts", strconv.Itoa(u.UnauthorizedAttempts)))
			return command.CommitAnd(dErrors.New(dErrors.CodeSecurityEscalation, "operations are closed"))
		}

		session = models.NewSession(domain.NewSessionID(), u, descriptor, requestcontext.ClientIP(ctx), now, s.tokenTTL)
		session.Fingerprint = s.devices.ComputeFingerprint(requestcontext.UserAgent(ctx))
		tx.PutSession(session)
		u.RecordLogin(now)
		tx.PutUser(u)
		tx.Append(audit.NewEntry(userCtx, audit.ActionLogin, fmt.Sprintf("%s logged in", u.Username)).
			With("session_id", session.ID.String()).
			With("device", descriptor))
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	signed, err := s.tokens.Issue(user.ID, session.ID, user.Role, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: signed, ExpiresAt: session.ExpiresAt, User: user, Session: session}, nil
}

// credentialFailure extends the principal's failure streak. The streak that
// reaches AlertThreshold commits one SECURITY_ALERT; longer streaks do not
// raise another until a successful login clears it.
func (s *Service) credentialFailure(ctx context.Context, username string) error {
	refused := dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	record, err := s.lockouts.RecordFailure(ctx, username)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record credential failure")
	}
	descriptor := requestcontext.Device(ctx)
	return s.runner.Update(ctx, "auth.login", func(tx *catalog.Tx) error {
		if record.FailureCount != AlertThreshold {
			return refused
		}
		role := "unknown"
		if u, ok := tx.UserByUsername(username); ok {
			role = u.Role.String()
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionSecurityAlert,
			fmt.Sprintf("%d consecutive failed logins for %s from %s", record.FailureCount, username, deviceOrUnknown(descriptor))).
			With("reason", "repeated_credential_failure").
			With("username", username).
			With("user_role", role).
			With("device", descriptor).
			With("client_ip", requestcontext.ClientIP(ctx)).
			With("failure_count", strconv.Itoa(record.FailureCount)))
		return command.CommitAnd(refused)
	})
}

// Logout revokes the session the request authenticated with.
func (s *Service) Logout(ctx context.Context) error {
	sid := requestcontext.SessionID(ctx)
	if sid.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "no session")
	}
	now := requestcontext.Now(ctx)
	err := s.runner.Update(ctx, "auth.logout", func(tx *catalog.Tx) error {
		session, err := tx.Session(sid)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnauthorized, "session not found")
			}
			return err
		}
		if err := session.CanRevoke(); err != nil {
			return err
		}
		session.ApplyRevocation(models.RevocationReasonLogout, now)
		tx.PutSession(session)
		tx.Append(audit.NewEntry(ctx, audit.ActionLogout, fmt.Sprintf("%s logged out", session.Username)).
			With("session_id", session.ID.String()))
		return nil
	})
	if err != nil {
		return err
	}
	s.runner.Metrics().AddSessionsInvalidated(1)
	return nil
}

// Authenticate resolves a bearer token to the principal behind an active
// session. It satisfies the transport's auth middleware.
func (s *Service) Authenticate(ctx context.Context, bearer string) (requestcontext.Actor, domain.SessionID, error) {
	now := requestcontext.Now(ctx)
	sid, claims, err := s.tokens.Validate(bearer, now)
	if err != nil {
		return requestcontext.Actor{}, domain.SessionID{}, err
	}

	var (
		actor       requestcontext.Actor
		fingerprint string
	)
	err = s.runner.View(ctx, "auth.authenticate", func(tx *catalog.Tx) error {
		session, err := tx.Session(sid)
		if err != nil || !session.IsActive(now) {
			return dErrors.New(dErrors.CodeUnauthorized, "session is no longer active")
		}
		if claims.Subject != session.UserID.String() {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		user, err := tx.User(session.UserID)
		if err != nil || !user.IsActive() {
			return dErrors.New(dErrors.CodeUnauthorized, "user is no longer active")
		}
		actor = requestcontext.Actor{
			UserID:     user.ID,
			Name:       user.Username,
			Role:       session.Role,
			CustomerID: session.CustomerID,
		}
		fingerprint = session.Fingerprint
		return nil
	})
	if err != nil {
		return requestcontext.Actor{}, domain.SessionID{}, err
	}

	current := s.devices.ComputeFingerprint(requestcontext.UserAgent(ctx))
	if _, drift := s.devices.CompareFingerprints(fingerprint, current); drift {
		s.logger.WarnContext(ctx, "session used from a different device",
			"session_id", sid.String(),
			"username", actor.Name,
			"device", requestcontext.Device(ctx),
		)
	}
	return actor, sid, nil
}

func deviceOrUnknown(descriptor string) string {
	if descriptor == "" {
		return "an unknown device"
	}
	return descriptor
}

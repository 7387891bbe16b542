package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"aurum/internal/auth/models"
	"aurum/internal/catalog"
	"aurum/internal/policy"
	"aurum/pkg/platform/audit"
	"aurum/pkg/requestcontext"
)

// SetOperationsOpen opens or closes operating hours. Closing revokes every
// active session held by a gated role in the same commit, so no gated
// session survives the toggle.
func (s *Service) SetOperationsOpen(ctx context.Context, open bool) (catalog.Settings, error) {
	now := requestcontext.Now(ctx)

	var (
		settings catalog.Settings
		revoked  int
	)
	err := s.runner.Update(ctx, "auth.set_operations", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionSetOperations); err != nil {
			return err
		}
		settings = tx.Settings()
		settings.OperationsOpen = open
		settings.UpdatedAt = now
		settings.UpdatedBy = requestcontext.ActorName(ctx)
		tx.PutSettings(settings)

		details := "operations opened"
		if !open {
			revoked = revokeSessions(tx, func(sess *models.Session) bool { return sess.Role.IsGated() },
				models.RevocationReasonOperationsClosed, now)
			details = fmt.Sprintf("operations closed, %d gated sessions revoked", revoked)
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionOperationsToggled, details).
			With("open", strconv.FormatBool(open)).
			With("sessions_revoked", strconv.Itoa(revoked)))
		return nil
	})
	if err != nil {
		return catalog.Settings{}, err
	}
	s.runner.Metrics().AddSessionsInvalidated(revoked)
	return settings, nil
}

// revokeSessions revokes every unrevoked session matching keep and returns
// how many were revoked.
func revokeSessions(tx *catalog.Tx, keep func(*models.Session) bool, reason models.RevocationReason, now time.Time) int {
	sessions := tx.Sessions(func(sess *models.Session) bool {
		return sess.CanRevoke() == nil && keep(sess)
	})
	for _, sess := range sessions {
		sess.ApplyRevocation(reason, now)
		tx.PutSession(sess)
	}
	return len(sessions)
}

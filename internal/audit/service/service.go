// Package service exposes the audit trail: recent activity, incidents and
// incident resolution.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aurum/internal/catalog"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

type Service struct {
	runner *command.Runner
}

func New(runner *command.Runner) *Service {
	return &Service{runner: runner}
}

// ListRecent returns the newest entries first, by Seq.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)
	var entries []audit.Entry
	err := s.runner.View(ctx, "audit.list_recent", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewAudit); err != nil {
			return err
		}
		entries = tx.AuditEntries(nil, limit)
		return nil
	})
	return entries, err
}

// ListIncidents returns incident entries, newest first. An empty status
// returns both OPEN and RESOLVED.
func (s *Service) ListIncidents(ctx context.Context, status audit.Status) ([]audit.Entry, error) {
	if status != "" && status != audit.StatusOpen && status != audit.StatusResolved {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be OPEN or RESOLVED")
	}
	var entries []audit.Entry
	err := s.runner.View(ctx, "audit.list_incidents", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewAudit); err != nil {
			return err
		}
		entries = tx.AuditEntries(func(e audit.Entry) bool {
			return e.Action.IsIncident() && (status == "" || e.Status == status)
		}, 0)
		return nil
	})
	return entries, err
}

// Resolve closes an OPEN incident. It is the only path from OPEN to RESOLVED.
func (s *Service) Resolve(ctx context.Context, id domain.AuditID, note string) (audit.Entry, error) {
	by := requestcontext.ActorName(ctx)
	now := requestcontext.Now(ctx)

	var resolved audit.Entry
	err := s.runner.Update(ctx, "audit.resolve_incident", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionResolveIncident); err != nil {
			return err
		}
		e, err := tx.AuditEntry(id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "audit entry not found")
			}
			return err
		}
		if err := e.CanResolve(); err != nil {
			return err
		}
		e.ApplyResolve(by, now)
		if err := tx.PutAuditEntry(e); err != nil {
			return err
		}
		details := fmt.Sprintf("%s #%d resolved", e.Action, e.Seq)
		if note = strings.TrimSpace(note); note != "" {
			details += ": " + note
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionIncidentResolved, details).
			With("incident_id", e.ID.String()).
			With("incident_action", string(e.Action)))
		resolved = e
		return nil
	})
	if err != nil {
		return audit.Entry{}, err
	}
	return resolved, nil
}

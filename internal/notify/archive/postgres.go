// Package archive copies committed audit entries into Postgres for long-term
// retention and reporting. The catalog remains the source of truth; the
// archive is a derived, idempotent copy.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
	txcontext "aurum/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id           UUID PRIMARY KEY,
	seq          BIGINT NOT NULL,
	action       TEXT NOT NULL,
	category     TEXT NOT NULL,
	performed_by TEXT NOT NULL,
	role         TEXT NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL,
	details      TEXT NOT NULL,
	metadata     JSONB,
	request_id   TEXT,
	status       TEXT NOT NULL,
	resolved_at  TIMESTAMPTZ,
	resolved_by  TEXT
);
CREATE INDEX IF NOT EXISTS audit_entries_occurred_at_idx ON audit_entries (occurred_at DESC);
CREATE INDEX IF NOT EXISTS audit_entries_open_idx ON audit_entries (status) WHERE status = 'OPEN';
`

// Store is the Postgres archive. It implements notify.Sink.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string { return "postgres" }

// Migrate creates the archive table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit archive: %w", err)
	}
	return nil
}

// Deliver archives a batch in one transaction. Replayed entries are ignored.
// An INCIDENT_RESOLVED entry also marks the archived incident resolved.
func (s *Store) Deliver(ctx context.Context, entries []audit.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, e := range entries {
			if err := s.insert(ctx, e); err != nil {
				return err
			}
			if e.Action == audit.ActionIncidentResolved {
				if err := s.markResolved(ctx, e); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) insert(ctx context.Context, e audit.Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("marshal metadata for entry %d: %w", e.Seq, err)
		}
	}
	query := `
		INSERT INTO audit_entries (
			id, seq, action, category, performed_by, role,
			occurred_at, details, metadata, request_id,
			status, resolved_at, resolved_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		e.ID.String(),
		int64(e.Seq),
		string(e.Action),
		string(e.Category),
		e.PerformedBy,
		e.Role.String(),
		e.Timestamp,
		e.Details,
		metadata,
		nullString(e.RequestID),
		string(e.Status),
		e.ResolvedAt,
		nullString(e.ResolvedBy),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry %d: %w", e.Seq, err)
	}
	return nil
}

func (s *Store) markResolved(ctx context.Context, resolution audit.Entry) error {
	incidentID, ok := resolution.Metadata["incident_id"]
	if !ok {
		return nil
	}
	query := `
		UPDATE audit_entries
		SET status = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1 AND status = $5
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		incidentID,
		string(audit.StatusResolved),
		resolution.Timestamp,
		resolution.PerformedBy,
		string(audit.StatusOpen),
	)
	if err != nil {
		return fmt.Errorf("mark incident %s resolved: %w", incidentID, err)
	}
	return nil
}

// ListRecent returns up to limit archived entries, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, seq, action, category, performed_by, role,
			   occurred_at, details, metadata, request_id,
			   status, resolved_at, resolved_by
		FROM audit_entries
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $1
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			id         string
			seq        int64
			role       string
			metadata   []byte
			requestID  sql.NullString
			resolvedAt sql.NullTime
			resolvedBy sql.NullString
		)
		err := rows.Scan(
			&id, &seq, &e.Action, &e.Category, &e.PerformedBy, &role,
			&e.Timestamp, &e.Details, &metadata, &requestID,
			&e.Status, &resolvedAt, &resolvedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.ID, err = domain.ParseAuditID(id); err != nil {
			return nil, fmt.Errorf("scan audit entry id: %w", err)
		}
		e.Seq = uint64(seq)
		e.Role = domain.Role(role)
		e.RequestID = requestID.String
		e.ResolvedBy = resolvedBy.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			e.ResolvedAt = &t
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for entry %d: %w", e.Seq, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Package command runs service commands as catalog transactions with the
// shared ambient concerns: a span, the command metrics, sentinel translation
// and one structured audit log line per committed entry.
package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aurum/internal/catalog"
	"aurum/internal/platform/metrics"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

var tracer = otel.Tracer("aurum/command")

// Runner is shared by every service; it is safe for concurrent use.
type Runner struct {
	store   *catalog.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(store *catalog.Store, opts ...Option) *Runner {
	r := &Runner{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Logger() *slog.Logger { return r.logger }

func (r *Runner) Metrics() *metrics.Metrics { return r.metrics }

// committedError marks a failure whose staged writes must still commit.
type committedError struct{ err error }

func (e *committedError) Error() string { return e.err.Error() }
func (e *committedError) Unwrap() error { return e.err }

// CommitAnd makes Update commit the staged writes, normally the incident
// describing the refusal, and then return err to the caller.
func CommitAnd(err error) error {
	return &committedError{err: err}
}

// Update runs fn as one write transaction named name.
func (r *Runner) Update(ctx context.Context, name string, fn func(tx *catalog.Tx) error) error {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("actor.role", requestcontext.ActorRole(ctx).String()),
	))
	defer span.End()
	started := time.Now()

	var (
		appended []audit.Entry
		refusal  error
	)
	err := r.store.Update(ctx, func(tx *catalog.Tx) error {
		if err := fn(tx); err != nil {
			var ce *committedError
			if !errors.As(err, &ce) {
				return err
			}
			refusal = ce.err
		}
		appended = tx.Appended()
		return nil
	})
	if err == nil {
		err = refusal
		for _, e := range appended {
			r.logAudit(ctx, e)
		}
	}
	err = Translate(err)
	r.finish(ctx, span, name, started, err)
	return err
}

// View runs fn as one read transaction named name.
func (r *Runner) View(ctx context.Context, name string, fn func(tx *catalog.Tx) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	err := Translate(r.store.View(ctx, fn))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Runner) finish(ctx context.Context, span trace.Span, name string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if outcome == string(dErrors.CodeInternal) {
			r.logger.ErrorContext(ctx, "command failed", "command", name, "error", err)
		}
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	r.metrics.ObserveCommand(name, outcome, started)
}

func (r *Runner) logAudit(ctx context.Context, e audit.Entry) {
	args := []any{
		"event", string(e.Action),
		"log_type", "audit",
		"seq", e.Seq,
		"performed_by", e.PerformedBy,
		"role", e.Role.String(),
		"status", string(e.Status),
	}
	if e.RequestID != "" {
		args = append(args, "request_id", e.RequestID)
	}
	for k, v := range e.Metadata {
		args = append(args, k, v)
	}
	if e.IsOpen() {
		r.logger.WarnContext(ctx, e.Details, args...)
		return
	}
	r.logger.InfoContext(ctx, e.Details, args...)
}

// Translate maps catalog sentinels onto domain codes and model invariant
// failures onto CodeValidation. Other domain errors pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		if de.Code == dErrors.CodeInvariantViolation {
			return dErrors.Wrap(err, dErrors.CodeValidation, de.Message)
		}
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodePrecondition, "invalid state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
	}
}

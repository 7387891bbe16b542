// Package requestcontext provides HTTP-independent accessors for request-scoped
// values: the acting principal, session, device metadata, request id and clock.
//
// Middleware sets these values; services read them. Services never import
// net/http to learn who is calling.
//
//	actor, ok := requestcontext.ActorFrom(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, requestcontext.Actor{Name: "asha", Role: domain.RoleAdmin})
package requestcontext

import (
	"context"
	"time"

	"aurum/pkg/domain"
)

type (
	actorKey       struct{}
	sessionIDKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor is the principal a command runs on behalf of.
type Actor struct {
	UserID     domain.UserID
	Name       string
	Role       domain.Role
	CustomerID domain.CustomerID // set only for CUSTOMER principals
}

// ActorFrom returns the acting principal. ok is false for system-initiated work.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// WithActor injects the acting principal.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorName returns the actor's name, or SYSTEM when none is set.
func ActorName(ctx context.Context) string {
	if a, ok := ActorFrom(ctx); ok && a.Name != "" {
		return a.Name
	}
	return string(domain.RoleSystem)
}

// ActorRole returns the actor's role, or SYSTEM when none is set.
func ActorRole(ctx context.Context) domain.Role {
	if a, ok := ActorFrom(ctx); ok {
		return a.Role
	}
	return domain.RoleSystem
}

// SessionID returns the session the request authenticated with (nil if none).
func SessionID(ctx context.Context) domain.SessionID {
	if sid, ok := ctx.Value(sessionIDKey{}).(domain.SessionID); ok {
		return sid
	}
	return domain.SessionID{}
}

func WithSessionID(ctx context.Context, sessionID domain.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// Device returns the human-readable device descriptor ("Chrome on Windows").
func Device(ctx context.Context) string {
	if d, ok := ctx.Value(deviceKey{}).(string); ok {
		return d
	}
	return ""
}

func WithDevice(ctx context.Context, descriptor string) context.Context {
	return context.WithValue(ctx, deviceKey{}, descriptor)
}

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() for
// workers and tests that did not inject one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the clock for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

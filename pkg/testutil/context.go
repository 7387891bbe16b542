package testutil

import (
	"context"
	"net/http"
	"time"

	"aurum/pkg/domain"
	"aurum/pkg/requestcontext"
)

// FixedTime is the clock most service tests run at.
var FixedTime = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

// Context returns a background context pinned to now.
func Context(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

// As attaches a staff actor to ctx. No session is attached, so the call is
// treated as a trusted in-process caller.
func As(ctx context.Context, name string, role domain.Role) context.Context {
	return requestcontext.WithActor(ctx, requestcontext.Actor{
		UserID: domain.NewUserID(),
		Name:   name,
		Role:   role,
	})
}

// AsCustomer attaches a CUSTOMER actor bound to customerID.
func AsCustomer(ctx context.Context, name string, customerID domain.CustomerID) context.Context {
	return requestcontext.WithActor(ctx, requestcontext.Actor{
		UserID:     domain.NewUserID(),
		Name:       name,
		Role:       domain.RoleCustomer,
		CustomerID: customerID,
	})
}

// InSession attaches a session id so the command is checked against the
// session table.
func InSession(ctx context.Context, sessionID domain.SessionID) context.Context {
	return requestcontext.WithSessionID(ctx, sessionID)
}

// WithActor sets the actor on a request the way the auth middleware would.
func WithActor(req *http.Request, actor requestcontext.Actor, sessionID domain.SessionID) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actor)
	if !sessionID.IsNil() {
		ctx = requestcontext.WithSessionID(ctx, sessionID)
	}
	return req.WithContext(ctx)
}

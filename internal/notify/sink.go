package notify

//go:generate mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks

import (
	"context"

	"aurum/pkg/platform/audit"
)

// Sink delivers a batch of committed entries to one downstream system.
// Entries arrive in Seq order. Deliver must honour ctx cancellation.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, entries []audit.Entry) error
}

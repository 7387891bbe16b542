// Package service authenticates staff and customers, manages user accounts
// and owns the operations-hours gate.
//
// Two refusals escalate: a gated role logging in while operations are closed,
// and the second consecutive credential failure for a principal. Both commit a
// SECURITY_ALERT before the error reaches the caller.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aurum/internal/auth/device"
	"aurum/internal/auth/secrets"
	"aurum/internal/auth/store/lockout"
	"aurum/internal/auth/token"
	"aurum/internal/platform/command"
)

const (
	DefaultTokenTTL = 12 * time.Hour
	// AlertThreshold is the streak length that raises the credential alert.
	AlertThreshold = 2
)

// LockoutStore tracks consecutive credential failures per username.
type LockoutStore interface {
	RecordFailure(ctx context.Context, identifier string) (*lockout.Record, error)
	Clear(ctx context.Context, identifier string) error
}

type Service struct {
	runner   *command.Runner
	tokens   *token.Service
	lockouts LockoutStore
	devices  *device.Service
	logger   *slog.Logger
	tokenTTL time.Duration

	// dummyHash is checked for unknown usernames so that every login pays
	// one bcrypt comparison.
	dummyHash string
}

type Option func(*Service)

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func WithLockoutStore(store LockoutStore) Option {
	return func(s *Service) { s.lockouts = store }
}

func WithDeviceService(d *device.Service) Option {
	return func(s *Service) { s.devices = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(runner *command.Runner, tokens *token.Service, opts ...Option) (*Service, error) {
	if runner == nil {
		return nil, errors.New("command runner is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	filler, err := secrets.Generate()
	if err != nil {
		return nil, err
	}
	dummy, err := secrets.Hash(filler)
	if err != nil {
		return nil, err
	}
	s := &Service{
		runner:    runner,
		tokens:    tokens,
		lockouts:  lockout.New(15 * time.Minute),
		devices:   device.NewService(true),
		logger:    runner.Logger(),
		tokenTTL:  DefaultTokenTTL,
		dummyHash: dummy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

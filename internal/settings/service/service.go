// Package service reads and updates the process-wide business settings.
// Operations hours are toggled by the auth service because closing them
// revokes sessions.
package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"aurum/internal/catalog"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/requestcontext"
)

type Service struct {
	runner *command.Runner
}

func New(runner *command.Runner) *Service {
	return &Service{runner: runner}
}

func (s *Service) Get(ctx context.Context) (catalog.Settings, error) {
	var settings catalog.Settings
	err := s.runner.View(ctx, "settings.get", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewSettings); err != nil {
			return err
		}
		settings = tx.Settings()
		return nil
	})
	return settings, err
}

// SetGoldRate replaces the current rate per 10 g. Bills already created keep
// the rate stored on their items.
func (s *Service) SetGoldRate(ctx context.Context, rate decimal.Decimal) (catalog.Settings, error) {
	if !rate.IsPositive() {
		return catalog.Settings{}, dErrors.New(dErrors.CodeValidation, "gold rate must be positive")
	}
	var settings catalog.Settings
	err := s.runner.Update(ctx, "settings.set_gold_rate", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionSetGoldRate); err != nil {
			return err
		}
		settings = tx.Settings()
		previous := settings.GoldRate
		settings.GoldRate = rate
		settings.UpdatedAt = requestcontext.Now(ctx)
		settings.UpdatedBy = requestcontext.ActorName(ctx)
		tx.PutSettings(settings)
		tx.Append(audit.NewEntry(ctx, audit.ActionGoldRateUpdated,
			fmt.Sprintf("gold rate changed from %s to %s per 10g", previous.String(), rate.String())).
			With("previous_rate", previous.String()).
			With("rate", rate.String()))
		return nil
	})
	if err != nil {
		return catalog.Settings{}, err
	}
	return settings, nil
}

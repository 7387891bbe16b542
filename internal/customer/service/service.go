// Package service manages customers: self-registration, staff creation,
// activation and bans.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurum/internal/catalog"
	"aurum/internal/customer/models"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

type Service struct {
	runner *command.Runner
}

func New(runner *command.Runner) *Service {
	return &Service{runner: runner}
}

type Input struct {
	Name  string
	Phone string
	City  string
}

// Register records a self-registered customer. It needs no capability and
// the customer starts PENDING until staff activate it.
func (s *Service) Register(ctx context.Context, in Input) (*models.Customer, error) {
	return s.create(ctx, "customer.register", in, models.StatusPending, audit.ActionCustomerRegistered, false)
}

// Create records an ACTIVE customer on staff authority.
func (s *Service) Create(ctx context.Context, in Input) (*models.Customer, error) {
	return s.create(ctx, "customer.create", in, models.StatusActive, audit.ActionCustomerCreated, true)
}

func (s *Service) create(ctx context.Context, name string, in Input, status models.Status,
	action audit.Action, guarded bool) (*models.Customer, error) {
	c, err := models.NewCustomer(domain.NewCustomerID(), in.Name, in.Phone, in.City, status,
		requestcontext.ActorName(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, command.Translate(err)
	}
	err = s.runner.Update(ctx, name, func(tx *catalog.Tx) error {
		if guarded {
			if err := policy.Authorize(ctx, tx, policy.ActionManageCustomers); err != nil {
				return err
			}
		}
		tx.PutCustomer(c)
		tx.Append(audit.NewEntry(ctx, action, fmt.Sprintf("customer %s (%s)", c.Name, c.Status)).
			With("customer_id", c.ID.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Activate(ctx context.Context, id domain.CustomerID) (*models.Customer, error) {
	return s.transition(ctx, "customer.activate", id, audit.ActionCustomerActivated,
		(*models.Customer).CanActivate, (*models.Customer).ApplyActivate)
}

// Ban stops further allotments to the customer. Products already allotted
// are not touched.
func (s *Service) Ban(ctx context.Context, id domain.CustomerID) (*models.Customer, error) {
	return s.transition(ctx, "customer.ban", id, audit.ActionCustomerBanned,
		(*models.Customer).CanBan, (*models.Customer).ApplyBan)
}

func (s *Service) transition(ctx context.Context, name string, id domain.CustomerID, action audit.Action,
	check func(*models.Customer) error, apply func(*models.Customer, time.Time)) (*models.Customer, error) {
	var updated *models.Customer
	err := s.runner.Update(ctx, name, func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionManageCustomers); err != nil {
			return err
		}
		c, err := tx.Customer(id)
		if err != nil {
			return notFound(err)
		}
		if err := check(c); err != nil {
			return err
		}
		apply(c, requestcontext.Now(ctx))
		tx.PutCustomer(c)
		tx.Append(audit.NewEntry(ctx, action, fmt.Sprintf("customer %s is now %s", c.Name, c.Status)).
			With("customer_id", c.ID.String()))
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns a customer. A CUSTOMER principal may read only itself.
func (s *Service) Get(ctx context.Context, id domain.CustomerID) (*models.Customer, error) {
	var customer *models.Customer
	err := s.runner.View(ctx, "customer.get", func(tx *catalog.Tx) error {
		if actor, ok := requestcontext.ActorFrom(ctx); ok && actor.Role == domain.RoleCustomer {
			if actor.CustomerID != id {
				return dErrors.New(dErrors.CodeNotFound, "customer not found")
			}
		} else if err := policy.Authorize(ctx, tx, policy.ActionViewCustomers); err != nil {
			return err
		}
		c, err := tx.Customer(id)
		if err != nil {
			return notFound(err)
		}
		customer = c
		return nil
	})
	return customer, err
}

// List returns customers in creation order, optionally by status.
func (s *Service) List(ctx context.Context, status models.Status) ([]*models.Customer, error) {
	var customers []*models.Customer
	err := s.runner.View(ctx, "customer.list", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewCustomers); err != nil {
			return err
		}
		customers = tx.Customers(func(c *models.Customer) bool {
			return status == "" || c.Status == status
		})
		return nil
	})
	return customers, err
}

func notFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "customer not found")
	}
	return err
}

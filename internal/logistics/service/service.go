// Package service implements dispatch and verified delivery of packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"aurum/internal/catalog"
	inventoryModels "aurum/internal/inventory/models"
	inventory "aurum/internal/inventory/service"
	"aurum/internal/logistics/models"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	platformstrings "aurum/pkg/platform/strings"
	"aurum/pkg/requestcontext"
)

const maxTrackingAttempts = 8

type Service struct {
	runner   *command.Runner
	tracking func() string
}

type Option func(*Service)

// WithTrackingIDs replaces the tracking id generator.
func WithTrackingIDs(gen func() string) Option {
	return func(s *Service) { s.tracking = gen }
}

func New(runner *command.Runner, opts ...Option) *Service {
	s := &Service{runner: runner, tracking: NewTrackingID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTrackingID returns "TRK" followed by eight upper-case hex characters.
func NewTrackingID() string {
	return "TRK" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Dispatch packs products of one bill under a new tracking id. A nil
// product list packs every product of the bill not already in a package.
func (s *Service) Dispatch(ctx context.Context, billID domain.BillID, productIDs []domain.ProductID) (*models.Package, error) {
	if billID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "bill id is required")
	}
	productIDs = platformstrings.Dedupe(productIDs)
	now := requestcontext.Now(ctx)
	by := inventory.ActorOf(ctx)

	var created *models.Package
	err := s.runner.Update(ctx, "logistics.dispatch", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionDispatch); err != nil {
			return err
		}
		bill, err := tx.Bill(billID)
		if err != nil {
			return notFound(err, "bill not found")
		}

		ids := productIDs
		if len(ids) == 0 {
			for _, id := range bill.ProductIDs() {
				if p, err := tx.Product(id); err == nil && p.PackageID.IsNil() {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return dErrors.New(dErrors.CodePrecondition, "every product of "+bill.InvoiceNumber+" is already packaged")
			}
		}

		products := make([]*inventoryModels.Product, 0, len(ids))
		for _, id := range ids {
			if !bill.Contains(id) {
				return dErrors.New(dErrors.CodePrecondition, "product "+id.String()+" is not on bill "+bill.InvoiceNumber)
			}
			p, err := tx.Product(id)
			if err != nil {
				return notFound(err, "product "+id.String()+" not found")
			}
			if err := p.CanDispatch(); err != nil {
				return err
			}
			products = append(products, p)
		}

		tracking, err := s.nextTrackingID(tx)
		if err != nil {
			return err
		}
		pkg, err := models.NewPackage(domain.NewPackageID(), tracking, bill.ID, bill.CustomerID, ids, by.Name, now)
		if err != nil {
			return err
		}
		if err := tx.InsertPackage(pkg); err != nil {
			return err
		}
		for _, p := range products {
			p.ApplyDispatch(pkg.ID, by, now)
			if err := tx.PutProduct(p); err != nil {
				return err
			}
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionPackageDispatched,
			fmt.Sprintf("package %s dispatched for %s with %d products", pkg.TrackingID, bill.InvoiceNumber, len(ids))).
			With("tracking_id", pkg.TrackingID).
			With("bill_id", bill.ID.String()))
		created = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) nextTrackingID(tx *catalog.Tx) (string, error) {
	for range maxTrackingAttempts {
		id := platformstrings.NormalizeCode(s.tracking())
		if _, taken := tx.PackageByTracking(id); !taken && id != "" {
			return id, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInternal, "could not allocate a unique tracking id")
}

// VerifyAndDeliver marks the package DELIVERED when verified names exactly
// its products. Any other set is refused and nothing changes.
func (s *Service) VerifyAndDeliver(ctx context.Context, trackingID string, verified []domain.ProductID) (*models.Package, error) {
	trackingID = platformstrings.NormalizeCode(trackingID)
	if trackingID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tracking id is required")
	}
	now := requestcontext.Now(ctx)
	by := inventory.ActorOf(ctx)

	var delivered *models.Package
	err := s.runner.Update(ctx, "logistics.verify_and_deliver", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionDeliver); err != nil {
			return err
		}
		pkg, ok := tx.PackageByTracking(trackingID)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "package "+trackingID+" not found")
		}
		if err := pkg.CanDeliver(); err != nil {
			return err
		}
		if err := pkg.VerifyContents(verified); err != nil {
			return err
		}
		products := make([]*inventoryModels.Product, 0, len(pkg.ProductIDs))
		for _, id := range pkg.ProductIDs {
			p, err := tx.Product(id)
			if err != nil {
				return err
			}
			if err := p.CanDeliver(); err != nil {
				return err
			}
			products = append(products, p)
		}
		for _, p := range products {
			p.ApplyDeliver(by, now)
			if err := tx.PutProduct(p); err != nil {
				return err
			}
		}
		pkg.ApplyDeliver(by.Name, now)
		tx.PutPackage(pkg)
		tx.Append(audit.NewEntry(ctx, audit.ActionPackageDelivered,
			fmt.Sprintf("package %s delivered after verifying %d products", pkg.TrackingID, len(products))).
			With("tracking_id", pkg.TrackingID).
			With("bill_id", pkg.BillID.String()))
		delivered = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivered, nil
}

func (s *Service) GetByTracking(ctx context.Context, trackingID string) (*models.Package, error) {
	trackingID = platformstrings.NormalizeCode(trackingID)
	var pkg *models.Package
	err := s.runner.View(ctx, "logistics.get", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewLogistics); err != nil {
			return err
		}
		p, ok := tx.PackageByTracking(trackingID)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "package "+trackingID+" not found")
		}
		pkg = p
		return nil
	})
	return pkg, err
}

// ListByBill returns the packages of a bill in dispatch order.
func (s *Service) ListByBill(ctx context.Context, billID domain.BillID) ([]*models.Package, error) {
	var pkgs []*models.Package
	err := s.runner.View(ctx, "logistics.list", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewLogistics); err != nil {
			return err
		}
		if _, err := tx.Bill(billID); err != nil {
			return notFound(err, "bill not found")
		}
		pkgs = tx.Packages(func(p *models.Package) bool { return p.BillID == billID })
		return nil
	})
	return pkgs, err
}

func notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	return err
}

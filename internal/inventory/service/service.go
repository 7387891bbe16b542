// Package service implements the inventory commands: intake, allotment and
// its verification, customer confirmation, suspension and scanning.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/catalog"
	"aurum/internal/inventory/models"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	platformstrings "aurum/pkg/platform/strings"
	"aurum/pkg/requestcontext"
)

type Service struct {
	runner *command.Runner
}

func New(runner *command.Runner) *Service {
	return &Service{runner: runner}
}

// IntakeInput describes a physical piece arriving at the counter.
type IntakeInput struct {
	Barcode     string
	BatchID     string
	Type        string
	Purity      string
	TotalWeight decimal.Decimal
	StoneWeight decimal.Decimal
	GoldWeight  decimal.Decimal
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status     models.Status
	CustomerID domain.CustomerID
}

// ActorOf is the transition actor for the principal in ctx.
func ActorOf(ctx context.Context) models.Actor {
	return models.Actor{Name: requestcontext.ActorName(ctx), Role: requestcontext.ActorRole(ctx)}
}

// Intake registers a new IN_STOCK product. A barcode already held by another
// product is refused with CodeConflict after a SECURITY_ALERT is committed.
func (s *Service) Intake(ctx context.Context, in IntakeInput) (*models.Product, error) {
	now := requestcontext.Now(ctx)
	product, err := models.NewProduct(domain.NewProductID(), platformstrings.NormalizeCode(in.Barcode), in.BatchID,
		in.Type, in.Purity, in.TotalWeight, in.StoneWeight, in.GoldWeight, ActorOf(ctx), now)
	if err != nil {
		return nil, command.Translate(err)
	}

	err = s.runner.Update(ctx, "inventory.intake", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionIntake); err != nil {
			return err
		}
		if err := InsertProduct(ctx, tx, product, "intake"); err != nil {
			return err
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionProductIntake,
			fmt.Sprintf("product %s intake: %s %s, %s g gold", product.Barcode, product.Purity, product.Type, product.GoldWeight)).
			With("product_id", product.ID.String()).
			With("barcode", product.Barcode))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// InsertProduct stages p inside tx. When the barcode is already held by
// another record a SECURITY_ALERT naming that record's status and custodian
// is staged and a CommitAnd conflict is returned, so the alert survives the
// refused command. source names the operation that presented the barcode.
func InsertProduct(ctx context.Context, tx *catalog.Tx, p *models.Product, source string) error {
	if existing, ok := tx.ProductByBarcode(p.Barcode); ok {
		tx.Append(DuplicateBarcodeAlert(ctx, existing, source))
		return command.CommitAnd(dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("barcode %s is already held by a %s product", existing.Barcode, existing.Status)))
	}
	if err := tx.InsertProduct(p); err != nil {
		return err
	}
	return nil
}

// DuplicateBarcodeAlert describes a barcode presented again while held by existing.
func DuplicateBarcodeAlert(ctx context.Context, existing *models.Product, source string) audit.Entry {
	return audit.NewEntry(ctx, audit.ActionSecurityAlert,
		fmt.Sprintf("duplicate barcode %s presented at %s; held by product %s in status %s, custodian %s",
			existing.Barcode, source, existing.ID, existing.Status, existing.Custodian())).
		With("barcode", existing.Barcode).
		With("product_id", existing.ID.String()).
		With("existing_status", existing.Status.String()).
		With("custodian", existing.Custodian()).
		With("source", source)
}

// Allot binds an IN_STOCK product to an ACTIVE customer.
func (s *Service) Allot(ctx context.Context, productID domain.ProductID, customerID domain.CustomerID) (*models.Product, error) {
	products, err := s.allot(ctx, "inventory.allot", []domain.ProductID{productID}, customerID)
	if err != nil {
		return nil, err
	}
	return products[0], nil
}

// BulkAllot allots every product or none. Every id is checked before the
// first product changes.
func (s *Service) BulkAllot(ctx context.Context, productIDs []domain.ProductID, customerID domain.CustomerID) ([]*models.Product, error) {
	return s.allot(ctx, "inventory.bulk_allot", productIDs, customerID)
}

func (s *Service) allot(ctx context.Context, name string, productIDs []domain.ProductID, customerID domain.CustomerID) ([]*models.Product, error) {
	productIDs = platformstrings.Dedupe(productIDs)
	if len(productIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one product id is required")
	}
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "customer id is required")
	}
	now := requestcontext.Now(ctx)
	by := ActorOf(ctx)

	var allotted []*models.Product
	err := s.runner.Update(ctx, name, func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionAllot); err != nil {
			return err
		}
		customer, err := tx.Customer(customerID)
		if err != nil {
			return notFound(err, "customer not found")
		}
		if err := customer.CanReceiveAllotment(); err != nil {
			return err
		}
		products, err := loadProducts(tx, productIDs, (*models.Product).CanAllot)
		if err != nil {
			return err
		}

		barcodes := make([]string, 0, len(products))
		for _, p := range products {
			p.ApplyAllot(customerID, by, now)
			if err := tx.PutProduct(p); err != nil {
				return err
			}
			customer.AddGold(p.GoldWeight, now)
			barcodes = append(barcodes, p.Barcode)
		}
		tx.PutCustomer(customer)

		if len(products) == 1 {
			tx.Append(audit.NewEntry(ctx, audit.ActionProductAllotted,
				fmt.Sprintf("product %s allotted to %s", products[0].Barcode, customer.Name)).
				With("product_id", products[0].ID.String()).
				With("customer_id", customerID.String()))
		} else {
			tx.Append(audit.NewEntry(ctx, audit.ActionBulkAllotment,
				fmt.Sprintf("%d products allotted to %s: %s", len(products), customer.Name, strings.Join(barcodes, ", "))).
				With("customer_id", customerID.String()).
				With("count", fmt.Sprint(len(products))))
		}
		allotted = products
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allotted, nil
}

// VerifyAllotment records the second-admin check on an ALLOTTED product.
func (s *Service) VerifyAllotment(ctx context.Context, productID domain.ProductID) (*models.Product, error) {
	now := requestcontext.Now(ctx)
	verifier := requestcontext.ActorName(ctx)

	var verified *models.Product
	err := s.runner.Update(ctx, "inventory.verify_allotment", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionVerifyAllotment); err != nil {
			return err
		}
		p, err := tx.Product(productID)
		if err != nil {
			return notFound(err, "product not found")
		}
		if err := p.CanVerifyAllotment(verifier); err != nil {
			return err
		}
		p.ApplyVerifyAllotment(verifier, now)
		if err := tx.PutProduct(p); err != nil {
			return err
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionAllotmentVerified,
			fmt.Sprintf("allotment of %s verified (allotted by %s)", p.Barcode, p.AllottedBy)).
			With("product_id", p.ID.String()))
		verified = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// CustomerConfirm records the customer's check of an allotted piece. A match
// moves it to CONFIRMED. A mismatch leaves the status alone and raises a
// CUSTOMER_MISMATCH incident; it is not an error.
func (s *Service) CustomerConfirm(ctx context.Context, productID domain.ProductID, match bool, note string) (*models.Product, error) {
	now := requestcontext.Now(ctx)
	by := ActorOf(ctx)
	var caller domain.CustomerID
	if actor, ok := requestcontext.ActorFrom(ctx); ok && actor.Role == domain.RoleCustomer {
		caller = actor.CustomerID
	}

	var result *models.Product
	err := s.runner.Update(ctx, "inventory.customer_confirm", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionConfirm); err != nil {
			return err
		}
		p, err := tx.Product(productID)
		if err != nil {
			return notFound(err, "product not found")
		}

		if !match {
			if err := p.CanReportMismatch(caller); err != nil {
				return err
			}
			details := fmt.Sprintf("customer reported a mismatch on %s (%s)", p.Barcode, p.Status)
			if note = strings.TrimSpace(note); note != "" {
				details += ": " + note
			}
			tx.Append(audit.NewEntry(ctx, audit.ActionCustomerMismatch, details).
				With("product_id", p.ID.String()).
				With("customer_id", p.CustomerID.String()))
			result = p
			return nil
		}

		if err := p.CanConfirm(caller); err != nil {
			return err
		}
		p.ApplyConfirm(by, now)
		if err := tx.PutProduct(p); err != nil {
			return err
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionCustomerConfirmed,
			fmt.Sprintf("customer confirmed %s", p.Barcode)).
			With("product_id", p.ID.String()).
			With("customer_id", p.CustomerID.String()))
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Suspend holds every listed product or none. It bypasses the custody chain
// and is therefore recorded as a BULK_STATUS_CHANGE incident.
func (s *Service) Suspend(ctx context.Context, productIDs []domain.ProductID, reason string) ([]*models.Product, error) {
	productIDs = platformstrings.Dedupe(productIDs)
	if len(productIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one product id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a suspension reason is required")
	}
	now := requestcontext.Now(ctx)
	by := ActorOf(ctx)

	var suspended []*models.Product
	err := s.runner.Update(ctx, "inventory.suspend", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionSuspend); err != nil {
			return err
		}
		products, err := loadProducts(tx, productIDs, (*models.Product).CanSuspend)
		if err != nil {
			return err
		}

		barcodes := make([]string, 0, len(products))
		for _, p := range products {
			if p.Status.HoldsCustomer() && p.HasCustomer() {
				if err := releaseGold(tx, p.CustomerID, p.GoldWeight, now); err != nil {
					return err
				}
			}
			p.ApplySuspend(reason, by, now)
			if err := tx.PutProduct(p); err != nil {
				return err
			}
			barcodes = append(barcodes, p.Barcode)
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionBulkStatusChange,
			fmt.Sprintf("%d products suspended (%s): %s", len(products), reason, strings.Join(barcodes, ", "))).
			With("count", fmt.Sprint(len(products))).
			With("to_status", models.StatusSuspended.String()))
		suspended = products
		return nil
	})
	if err != nil {
		return nil, err
	}
	return suspended, nil
}

func releaseGold(tx *catalog.Tx, customerID domain.CustomerID, weight decimal.Decimal, now time.Time) error {
	c, err := tx.Customer(customerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.ReleaseGold(weight, now)
	tx.PutCustomer(c)
	return nil
}

// ScanInput is a barcode read at a checkpoint. ProductID, when set, is the
// record the scanner expected the barcode to belong to.
type ScanInput struct {
	Barcode   string
	ProductID domain.ProductID
	Location  string
}

// Scan resolves a barcode to its product and records the read. A barcode
// belonging to a different record than expected raises a SECURITY_ALERT and
// is refused with CodeConflict.
func (s *Service) Scan(ctx context.Context, in ScanInput) (*models.Product, error) {
	barcode := platformstrings.NormalizeCode(in.Barcode)
	if barcode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "barcode is required")
	}

	var scanned *models.Product
	err := s.runner.Update(ctx, "inventory.scan", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionScan); err != nil {
			return err
		}
		p, ok := tx.ProductByBarcode(barcode)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "no product carries barcode "+barcode)
		}
		if !in.ProductID.IsNil() && in.ProductID != p.ID {
			tx.Append(DuplicateBarcodeAlert(ctx, p, "scan").With("expected_product_id", in.ProductID.String()))
			return command.CommitAnd(dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("barcode %s belongs to another product (%s)", barcode, p.Status)))
		}
		entry := audit.NewEntry(ctx, audit.ActionProductScanned,
			fmt.Sprintf("product %s scanned in status %s", p.Barcode, p.Status)).
			With("product_id", p.ID.String())
		if loc := strings.TrimSpace(in.Location); loc != "" {
			entry = entry.With("location", loc)
		}
		tx.Append(entry)
		scanned = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scanned, nil
}

// Get returns one product. Customers only see their own.
func (s *Service) Get(ctx context.Context, productID domain.ProductID) (*models.Product, error) {
	var product *models.Product
	err := s.runner.View(ctx, "inventory.get", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewInventory); err != nil {
			return err
		}
		p, err := tx.Product(productID)
		if err != nil {
			return notFound(err, "product not found")
		}
		if own, restricted := customerScope(ctx); restricted && p.CustomerID != own {
			return dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		product = p
		return nil
	})
	return product, err
}

// List returns products matching filter, oldest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Product, error) {
	if own, restricted := customerScope(ctx); restricted {
		filter.CustomerID = own
	}
	var products []*models.Product
	err := s.runner.View(ctx, "inventory.list", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewInventory); err != nil {
			return err
		}
		products = tx.Products(func(p *models.Product) bool {
			if filter.Status != "" && p.Status != filter.Status {
				return false
			}
			return filter.CustomerID.IsNil() || p.CustomerID == filter.CustomerID
		})
		return nil
	})
	return products, err
}

func customerScope(ctx context.Context) (domain.CustomerID, bool) {
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok || actor.Role != domain.RoleCustomer {
		return domain.CustomerID{}, false
	}
	return actor.CustomerID, true
}

// loadProducts fetches every id and runs check on each before returning, so
// callers never mutate a batch that contains an invalid member.
func loadProducts(tx *catalog.Tx, ids []domain.ProductID, check func(*models.Product) error) ([]*models.Product, error) {
	products := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := tx.Product(id)
		if err != nil {
			return nil, notFound(err, "product "+id.String()+" not found")
		}
		if err := check(p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	return err
}

// Package service implements bill creation, split invoicing and settlement.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aurum/internal/billing/models"
	"aurum/internal/catalog"
	inventoryModels "aurum/internal/inventory/models"
	inventory "aurum/internal/inventory/service"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/internal/valuation"
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

// ItemInput prices one product. The product's gold weight and purity are
// taken from the catalog.
type ItemInput struct {
	ProductID domain.ProductID
	Terms
}

// Terms are the per-line pricing inputs a biller chooses.
type Terms struct {
	// Rate is per 10 g. Zero uses the current gold rate.
	Rate            decimal.Decimal
	MakingPercent   decimal.Decimal
	FixedMakingRate decimal.Decimal
	// MakingTaxPercent nil uses valuation.DefaultMakingTaxPercent.
	MakingTaxPercent *decimal.Decimal
}

type CreateBillInput struct {
	CustomerID domain.CustomerID
	Mode       valuation.PricingMode
	// InvoiceNumber is optional; the next sequential number is used when empty.
	InvoiceNumber string
	Items         []ItemInput
}

// SplitInput spreads items over Parts bills. When Items is empty the
// customer's billing queue is used, every line priced with Defaults.
type SplitInput struct {
	CustomerID domain.CustomerID
	Mode       valuation.PricingMode
	Parts      int
	Items      []ItemInput
	Defaults   Terms
}

type ListFilter struct {
	CustomerID domain.CustomerID
	Status     models.Status
}

// CreateBill prices the items and bills them as one batch. Every product
// must be ALLOTTED or CONFIRMED to the customer; all move to BILLED.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (*models.Bill, error) {
	if err := validateItems(in.CustomerID, in.Items); err != nil {
		return nil, err
	}
	invoice := platformstrings.NormalizeCode(in.InvoiceNumber)
	now := requestcontext.Now(ctx)
	by := inventory.ActorOf(ctx)

	var created *models.Bill
	err := s.runner.Update(ctx, "billing.create_bill", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionCreateBill); err != nil {
			return err
		}
		customer, err := tx.Customer(in.CustomerID)
		if err != nil {
			return notFound(err, "customer not found")
		}
		items, products, err := priceItems(tx, in.CustomerID, in.Mode, in.Items)
		if err != nil {
			return err
		}
		if invoice == "" {
			invoice = tx.NextInvoiceNumber()
		}
		bill, err := models.NewBill(domain.NewBillID(), invoice, in.CustomerID, in.Mode, items, by.Name, now)
		if err != nil {
			return err
		}
		if err := insertBill(tx, bill, products, by); err != nil {
			return err
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionBillCreated,
			fmt.Sprintf("bill %s for %s: %d items, total %s", bill.InvoiceNumber, customer.Name, len(bill.Items), bill.Totals.Total)).
			With("bill_id", bill.ID.String()).
			With("invoice_number", bill.InvoiceNumber).
			With("customer_id", in.CustomerID.String()))
		created = bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateSplitBills distributes the items round-robin into at most Parts
// bills, each with its own sequential invoice number. Empty parts produce
// no bill.
func (s *Service) CreateSplitBills(ctx context.Context, in SplitInput) ([]*models.Bill, error) {
	if in.CustomerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "customer id is required")
	}
	if in.Parts < valuation.MinSplitParts || in.Parts > valuation.MaxSplitParts {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("split parts must be between %d and %d", valuation.MinSplitParts, valuation.MaxSplitParts))
	}
	if len(in.Items) > 0 {
		if err := validateItems(in.CustomerID, in.Items); err != nil {
			return nil, err
		}
	}
	now := requestcontext.Now(ctx)
	by := inventory.ActorOf(ctx)

	var created []*models.Bill
	err := s.runner.Update(ctx, "billing.create_split_bills", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionCreateBill); err != nil {
			return err
		}
		customer, err := tx.Customer(in.CustomerID)
		if err != nil {
			return notFound(err, "customer not found")
		}
		inputs := in.Items
		if len(inputs) == 0 {
			for _, p := range queue(tx, in.CustomerID) {
				inputs = append(inputs, ItemInput{ProductID: p.ID, Terms: in.Defaults})
			}
		}
		items, products, err := priceItems(tx, in.CustomerID, in.Mode, inputs)
		if err != nil {
			return err
		}
		batches, err := valuation.Split(items, in.Parts)
		if err != nil {
			return err
		}

		group := uuid.NewString()
		byID := make(map[domain.ProductID]*inventoryModels.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		invoices := make([]string, 0, len(batches))
		bills := make([]*models.Bill, 0, len(batches))
		for i, batch := range batches {
			bill, err := models.NewBill(domain.NewBillID(), tx.NextInvoiceNumber(), in.CustomerID, in.Mode, batch, by.Name, now)
			if err != nil {
				return err
			}
			bill.Split = &models.Split{Group: group, Part: i + 1, Of: len(batches)}
			members := make([]*inventoryModels.Product, 0, len(batch))
			for _, it := range batch {
				members = append(members, byID[it.ProductID])
			}
			if err := insertBill(tx, bill, members, by); err != nil {
				return err
			}
			invoices = append(invoices, bill.InvoiceNumber)
			bills = append(bills, bill)
		}
		tx.Append(audit.NewEntry(ctx, audit.ActionSplitBillsCreated,
			fmt.Sprintf("%d items for %s split into %d bills: %s", len(items), customer.Name, len(bills), strings.Join(invoices, ", "))).
			With("split_group", group).
			With("customer_id", in.CustomerID.String()))
		created = bills
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validateItems(customerID domain.CustomerID, items []ItemInput) error {
	if customerID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "customer id is required")
	}
	if len(items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "a bill needs at least one item")
	}
	seen := make(map[domain.ProductID]bool, len(items))
	for _, it := range items {
		if it.ProductID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "item product id is required")
		}
		if seen[it.ProductID] {
			return dErrors.New(dErrors.CodeValidation, "product "+it.ProductID.String()+" is listed twice")
		}
		seen[it.ProductID] = true
	}
	return nil
}

// priceItems loads and checks every product before pricing any line.
func priceItems(tx *catalog.Tx, customerID domain.CustomerID, mode valuation.PricingMode,
	inputs []ItemInput) ([]models.Item, []*inventoryModels.Product, error) {
	if len(inputs) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "nothing to bill")
	}
	rate := tx.Settings().GoldRate
	items := make([]models.Item, 0, len(inputs))
	products := make([]*inventoryModels.Product, 0, len(inputs))
	for _, in := range inputs {
		p, err := tx.Product(in.ProductID)
		if err != nil {
			return nil, nil, notFound(err, "product "+in.ProductID.String()+" not found")
		}
		if err := p.CanBill(customerID); err != nil {
			return nil, nil, err
		}
		line, err := valuation.Price(mode, in.Terms.input(p, rate))
		if err != nil {
			return nil, nil, err
		}
		items = append(items, models.Item{ProductID: p.ID, Barcode: p.Barcode, Type: p.Type, Line: line})
		products = append(products, p)
	}
	return items, products, nil
}

func (t Terms) input(p *inventoryModels.Product, currentRate decimal.Decimal) valuation.Input {
	rate := t.Rate
	if rate.IsZero() {
		rate = currentRate
	}
	makingTax := valuation.DefaultMakingTaxPercent
	if t.MakingTaxPercent != nil {
		makingTax = *t.MakingTaxPercent
	}
	return valuation.Input{
		Purity:           p.Purity,
		GrossWeight:      p.GoldWeight,
		Rate:             rate,
		MakingPercent:    t.MakingPercent,
		FixedMakingRate:  t.FixedMakingRate,
		MakingTaxPercent: makingTax,
	}
}

func insertBill(tx *catalog.Tx, bill *models.Bill, products []*inventoryModels.Product, by inventoryModels.Actor) error {
	if err := tx.InsertBill(bill); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "invoice number "+bill.InvoiceNumber+" is already used")
		}
		return err
	}
	for _, p := range products {
		p.ApplyBill(bill.ID, by, bill.CreatedAt)
		if err := tx.PutProduct(p); err != nil {
			return err
		}
	}
	return nil
}

// SettlePayment records payment. When gold is also in, the bill completes
// and its BILLED products move to COMPLETED in the same commit.
func (s *Service) SettlePayment(ctx context.Context, billID domain.BillID, mode models.PaymentMode) (*models.Bill, error) {
	mode, err := models.ParsePaymentMode(string(mode))
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, "billing.settle_payment", billID, func(tx *catalog.Tx, b *models.Bill) (bool, error) {
		if err := b.CanSettlePayment(); err != nil {
			return false, err
		}
		completed := b.ApplyPayment(mode, requestcontext.Now(ctx))
		tx.Append(audit.NewEntry(ctx, audit.ActionPaymentSettled,
			fmt.Sprintf("payment for %s received by %s", b.InvoiceNumber, mode)).
			With("bill_id", b.ID.String()).
			With("payment_mode", string(mode)))
		return completed, nil
	})
}

// ToggleGoldReceived flips the gold flag of a PENDING bill.
func (s *Service) ToggleGoldReceived(ctx context.Context, billID domain.BillID) (*models.Bill, error) {
	return s.settle(ctx, "billing.toggle_gold_received", billID, func(tx *catalog.Tx, b *models.Bill) (bool, error) {
		if err := b.CanToggleGold(); err != nil {
			return false, err
		}
		completed := b.ApplyToggleGold(requestcontext.Now(ctx))
		tx.Append(audit.NewEntry(ctx, audit.ActionGoldReceivedToggled,
			fmt.Sprintf("gold received for %s set to %t", b.InvoiceNumber, b.GoldReceived)).
			With("bill_id", b.ID.String()).
			With("gold_received", fmt.Sprint(b.GoldReceived)))
		return completed, nil
	})
}

func (s *Service) settle(ctx context.Context, name string, billID domain.BillID,
	apply func(tx *catalog.Tx, b *models.Bill) (bool, error)) (*models.Bill, error) {
	by := inventory.ActorOf(ctx)

	var settled *models.Bill
	err := s.runner.Update(ctx, name, func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionSettleBill); err != nil {
			return err
		}
		bill, err := tx.Bill(billID)
		if err != nil {
			return notFound(err, "bill not found")
		}
		completed, err := apply(tx, bill)
		if err != nil {
			return err
		}
		if err := tx.PutBill(bill); err != nil {
			return err
		}
		if completed {
			moved, err := completeProducts(tx, bill, by)
			if err != nil {
				return err
			}
			tx.Append(audit.NewEntry(ctx, audit.ActionBillCompleted,
				fmt.Sprintf("bill %s completed; %d products completed", bill.InvoiceNumber, moved)).
				With("bill_id", bill.ID.String()))
		}
		settled = bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// completeProducts moves the bill's BILLED products to COMPLETED. Products
// already further along (dispatched, delivered) or suspended are left alone.
func completeProducts(tx *catalog.Tx, bill *models.Bill, by inventoryModels.Actor) (int, error) {
	moved := 0
	for _, id := range bill.ProductIDs() {
		p, err := tx.Product(id)
		if err != nil {
			return 0, err
		}
		if p.Status != inventoryModels.StatusBilled {
			continue
		}
		p.ApplyComplete(by, bill.UpdatedAt)
		if err := tx.PutProduct(p); err != nil {
			return 0, err
		}
		moved++
	}
	return moved, nil
}

// Get returns one bill. Customers only see their own.
func (s *Service) Get(ctx context.Context, billID domain.BillID) (*models.Bill, error) {
	var bill *models.Bill
	err := s.runner.View(ctx, "billing.get", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewBilling); err != nil {
			return err
		}
		b, err := tx.Bill(billID)
		if err != nil {
			return notFound(err, "bill not found")
		}
		if own, restricted := customerScope(ctx); restricted && own != b.CustomerID {
			return dErrors.New(dErrors.CodeNotFound, "bill not found")
		}
		bill = b
		return nil
	})
	return bill, err
}

// List returns bills by invoice number.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Bill, error) {
	if own, restricted := customerScope(ctx); restricted {
		filter.CustomerID = own
	}
	var bills []*models.Bill
	err := s.runner.View(ctx, "billing.list", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewBilling); err != nil {
			return err
		}
		bills = tx.Bills(func(b *models.Bill) bool {
			if filter.Status != "" && b.Status != filter.Status {
				return false
			}
			return filter.CustomerID.IsNil() || b.CustomerID == filter.CustomerID
		})
		return nil
	})
	return bills, err
}

// Queue lists a customer's products awaiting billing (ALLOTTED or CONFIRMED).
func (s *Service) Queue(ctx context.Context, customerID domain.CustomerID) ([]*inventoryModels.Product, error) {
	var products []*inventoryModels.Product
	err := s.runner.View(ctx, "billing.queue", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionCreateBill); err != nil {
			return err
		}
		if _, err := tx.Customer(customerID); err != nil {
			return notFound(err, "customer not found")
		}
		products = queue(tx, customerID)
		return nil
	})
	return products, err
}

func queue(tx *catalog.Tx, customerID domain.CustomerID) []*inventoryModels.Product {
	return tx.Products(func(p *inventoryModels.Product) bool {
		return p.CustomerID == customerID &&
			(p.Status == inventoryModels.StatusAllotted || p.Status == inventoryModels.StatusConfirmed)
	})
}

func customerScope(ctx context.Context) (domain.CustomerID, bool) {
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok || actor.Role != domain.RoleCustomer {
		return domain.CustomerID{}, false
	}
	return actor.CustomerID, true
}

func notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	return err
}

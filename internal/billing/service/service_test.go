package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"aurum/internal/billing/models"
	customerModels "aurum/internal/customer/models"
	inventoryModels "aurum/internal/inventory/models"
	inventory "aurum/internal/inventory/service"
	"aurum/internal/valuation"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	fx        *testutil.Fixture
	svc       *Service
	inventory *inventory.Service
	admin     context.Context
	biller    context.Context
	customer  *customerModels.Customer
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.fx = testutil.NewFixture()
	s.svc = New(s.fx.Runner)
	s.inventory = inventory.New(s.fx.Runner)
	base := testutil.Context(testutil.FixedTime)
	s.admin = testutil.As(base, "asha", domain.RoleAdmin)
	s.biller = testutil.As(base, "bina", domain.RoleBilling)
	s.customer = s.fx.SeedCustomer(s.T(), base, "C1", customerModels.StatusActive)
}

// allotted seeds products and allots them to the suite customer.
func (s *ServiceSuite) allotted(barcodes ...string) []*inventoryModels.Product {
	out := make([]*inventoryModels.Product, 0, len(barcodes))
	for _, bc := range barcodes {
		p := s.fx.SeedProduct(s.T(), s.admin, bc, "22K", "10")
		p, err := s.inventory.Allot(s.admin, p.ID, s.customer.ID)
		s.Require().NoError(err)
		out = append(out, p)
	}
	return out
}

func saleTerms() Terms {
	return Terms{Rate: decimal.NewFromInt(70000), MakingPercent: decimal.NewFromInt(10)}
}

func (s *ServiceSuite) TestCustodyScenario() {
	p := s.allotted("A1")[0]
	own := testutil.AsCustomer(testutil.Context(testutil.FixedTime), "C1", s.customer.ID)
	_, err := s.inventory.CustomerConfirm(own, p.ID, true, "")
	s.Require().NoError(err)

	bill, err := s.svc.CreateBill(s.biller, CreateBillInput{
		CustomerID: s.customer.ID,
		Mode:       valuation.ModeSale,
		Items:      []ItemInput{{ProductID: p.ID, Terms: saleTerms()}},
	})
	s.Require().NoError(err)
	s.Equal("INV-000001", bill.InvoiceNumber)
	s.Equal("64120", bill.Totals.GoldValue.String())
	s.Equal("6412", bill.Totals.MakingAmount.String())
	s.Equal("1923.6", bill.Totals.GoldTax.String())
	s.Equal("1154.16", bill.Totals.MakingTax.String())
	s.Equal("73609.76", bill.Totals.Total.String())
	s.True(bill.Items[0].Matches())
	s.Equal(inventoryModels.StatusBilled, s.fx.Product(s.T(), p.ID).Status)

	bill, err = s.svc.SettlePayment(s.biller, bill.ID, "upi")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, bill.Status)
	s.Equal(inventoryModels.StatusBilled, s.fx.Product(s.T(), p.ID).Status)

	bill, err = s.svc.ToggleGoldReceived(s.biller, bill.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, bill.Status)
	s.Equal(models.PaymentUPI, bill.PaymentMode)
	s.Equal(inventoryModels.StatusCompleted, s.fx.Product(s.T(), p.ID).Status)
	s.Len(s.fx.Entries(s.T(), audit.ActionBillCompleted), 1)
}

func (s *ServiceSuite) TestOmittedRateUsesCurrentGoldRate() {
	p := s.allotted("A1")[0]
	bill, err := s.svc.CreateBill(s.biller, CreateBillInput{
		CustomerID: s.customer.ID,
		Mode:       valuation.ModeSale,
		Items:      []ItemInput{{ProductID: p.ID, Terms: Terms{MakingPercent: decimal.NewFromInt(10)}}},
	})
	s.Require().NoError(err)
	s.Equal("70000", bill.Items[0].Rate.String())
	s.Equal("18", bill.Items[0].MakingTaxPercent.String())
}

func (s *ServiceSuite) TestJobWork() {
	p := s.allotted("A1")[0]
	zero := decimal.Zero
	bill, err := s.svc.CreateBill(s.biller, CreateBillInput{
		CustomerID: s.customer.ID,
		Mode:       valuation.ModeJobWork,
		Items: []ItemInput{{ProductID: p.ID, Terms: Terms{
			FixedMakingRate:  decimal.NewFromInt(500),
			MakingTaxPercent: &zero,
		}}},
	})
	s.Require().NoError(err)
	s.True(bill.Totals.GoldValue.IsZero())
	s.Equal("5000", bill.Totals.Total.String())
}

func (s *ServiceSuite) TestCreateBillPreconditions() {
	inStock := s.fx.SeedProduct(s.T(), s.admin, "S1", "22K", "5")
	ready := s.allotted("A1")[0]

	s.Run("every product must be allotted to the customer", func() {
		_, err := s.svc.CreateBill(s.biller, CreateBillInput{
			CustomerID: s.customer.ID,
			Mode:       valuation.ModeSale,
			Items: []ItemInput{
				{ProductID: ready.ID, Terms: saleTerms()},
				{ProductID: inStock.ID, Terms: saleTerms()},
			},
		})
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Equal(inventoryModels.StatusAllotted, s.fx.Product(s.T(), ready.ID).Status)
	})

	s.Run("duplicate items are rejected", func() {
		_, err := s.svc.CreateBill(s.biller, CreateBillInput{
			CustomerID: s.customer.ID,
			Mode:       valuation.ModeSale,
			Items: []ItemInput{
				{ProductID: ready.ID, Terms: saleTerms()},
				{ProductID: ready.ID, Terms: saleTerms()},
			},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("explicit invoice collision is a conflict", func() {
		other := s.allotted("A2")[0]
		_, err := s.svc.CreateBill(s.biller, CreateBillInput{
			CustomerID: s.customer.ID, Mode: valuation.ModeSale, InvoiceNumber: "inv-77",
			Items: []ItemInput{{ProductID: ready.ID, Terms: saleTerms()}},
		})
		s.Require().NoError(err)
		_, err = s.svc.CreateBill(s.biller, CreateBillInput{
			CustomerID: s.customer.ID, Mode: valuation.ModeSale, InvoiceNumber: "INV-77",
			Items: []ItemInput{{ProductID: other.ID, Terms: saleTerms()}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(inventoryModels.StatusAllotted, s.fx.Product(s.T(), other.ID).Status)
	})

	s.Run("dispatch staff may not bill", func() {
		ctx := testutil.As(testutil.Context(testutil.FixedTime), "dev", domain.RoleDispatch)
		_, err := s.svc.CreateBill(ctx, CreateBillInput{
			CustomerID: s.customer.ID, Mode: valuation.ModeSale,
			Items: []ItemInput{{ProductID: ready.ID, Terms: saleTerms()}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestSplitBillsRoundRobin() {
	products := s.allotted("A1", "A2", "A3", "A4", "A5")

	bills, err := s.svc.CreateSplitBills(s.biller, SplitInput{
		CustomerID: s.customer.ID,
		Mode:       valuation.ModeSale,
		Parts:      3,
		Defaults:   saleTerms(),
	})
	s.Require().NoError(err)
	s.Require().Len(bills, 3)

	want := [][]domain.ProductID{
		{products[0].ID, products[3].ID},
		{products[1].ID, products[4].ID},
		{products[2].ID},
	}
	seen := make(map[string]bool)
	for i, b := range bills {
		s.Equal(want[i], b.ProductIDs())
		s.Equal(i+1, b.Split.Part)
		s.Equal(3, b.Split.Of)
		s.False(seen[b.InvoiceNumber])
		seen[b.InvoiceNumber] = true
	}
	s.Equal("INV-000001", bills[0].InvoiceNumber)
	s.Equal("INV-000003", bills[2].InvoiceNumber)

	queue, err := s.svc.Queue(s.biller, s.customer.ID)
	s.Require().NoError(err)
	s.Empty(queue)
}

func (s *ServiceSuite) TestSplitDropsEmptyParts() {
	s.allotted("A1", "A2")
	bills, err := s.svc.CreateSplitBills(s.biller, SplitInput{
		CustomerID: s.customer.ID, Mode: valuation.ModeSale, Parts: 5, Defaults: saleTerms(),
	})
	s.Require().NoError(err)
	s.Len(bills, 2)
	s.Equal(2, bills[0].Split.Of)

	_, err = s.svc.CreateSplitBills(s.biller, SplitInput{
		CustomerID: s.customer.ID, Mode: valuation.ModeSale, Parts: 6, Defaults: saleTerms(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSettlement() {
	p := s.allotted("A1")[0]
	bill, err := s.svc.CreateBill(s.biller, CreateBillInput{
		CustomerID: s.customer.ID, Mode: valuation.ModeSale,
		Items: []ItemInput{{ProductID: p.ID, Terms: saleTerms()}},
	})
	s.Require().NoError(err)

	s.Run("gold flag toggles while pending", func() {
		b, err := s.svc.ToggleGoldReceived(s.biller, bill.ID)
		s.Require().NoError(err)
		s.True(b.GoldReceived)
		b, err = s.svc.ToggleGoldReceived(s.biller, bill.ID)
		s.Require().NoError(err)
		s.False(b.GoldReceived)
		s.Equal(models.StatusPending, b.Status)
	})

	s.Run("unknown payment mode", func() {
		_, err := s.svc.SettlePayment(s.biller, bill.ID, "BARTER")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("payment settles once", func() {
		_, err := s.svc.SettlePayment(s.biller, bill.ID, models.PaymentCash)
		s.Require().NoError(err)
		_, err = s.svc.SettlePayment(s.biller, bill.ID, models.PaymentCash)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("completed bill is frozen", func() {
		b, err := s.svc.ToggleGoldReceived(s.biller, bill.ID)
		s.Require().NoError(err)
		s.True(b.IsCompleted())
		_, err = s.svc.ToggleGoldReceived(s.biller, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("completed product can still be put on hold", func() {
		held, err := s.inventory.Suspend(s.admin, []domain.ProductID{p.ID}, "late hold")
		s.Require().NoError(err)
		s.Equal(inventoryModels.StatusSuspended, held[0].Status)
	})
}

func (s *ServiceSuite) TestCustomersSeeOnlyTheirBills() {
	p := s.allotted("A1")[0]
	bill, err := s.svc.CreateBill(s.biller, CreateBillInput{
		CustomerID: s.customer.ID, Mode: valuation.ModeSale,
		Items: []ItemInput{{ProductID: p.ID, Terms: saleTerms()}},
	})
	s.Require().NoError(err)

	own := testutil.AsCustomer(testutil.Context(testutil.FixedTime), "C1", s.customer.ID)
	got, err := s.svc.Get(own, bill.ID)
	s.Require().NoError(err)
	s.Equal(bill.InvoiceNumber, got.InvoiceNumber)

	other := testutil.AsCustomer(testutil.Context(testutil.FixedTime), "C2", domain.NewCustomerID())
	list, err := s.svc.List(other, ListFilter{})
	s.Require().NoError(err)
	s.Empty(list)
}

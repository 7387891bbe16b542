package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type ProductSuite struct {
	suite.Suite
	now   time.Time
	admin Actor
}

func TestProductSuite(t *testing.T) {
	suite.Run(t, new(ProductSuite))
}

func (s *ProductSuite) SetupTest() {
	s.now = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	s.admin = Actor{Name: "asha", Role: domain.RoleAdmin}
}

func (s *ProductSuite) newProduct() *Product {
	p, err := NewProduct(domain.NewProductID(), "A1", "", "ring", "22k",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10), s.admin, s.now)
	s.Require().NoError(err)
	return p
}

func (s *ProductSuite) TestNewProduct() {
	s.Run("weights must balance", func() {
		_, err := NewProduct(domain.NewProductID(), "A1", "", "ring", "22K",
			decimal.NewFromInt(10), decimal.NewFromInt(1), decimal.NewFromInt(10), s.admin, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("barcode required", func() {
		_, err := NewProduct(domain.NewProductID(), "  ", "", "ring", "22K",
			decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10), s.admin, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("starts in stock with an intake custody event", func() {
		p := s.newProduct()
		s.Equal(StatusInStock, p.Status)
		s.Equal("22K", p.Purity)
		s.Equal("9.16", p.FineWeight().String())
		s.Len(p.Custody, 1)
		s.Equal("asha", p.Custodian())
		s.False(p.HasCustomer())
	})
}

func (s *ProductSuite) TestAllotment() {
	customer := domain.NewCustomerID()

	s.Run("allot then verify by a second admin", func() {
		p := s.newProduct()
		s.Require().NoError(p.CanAllot())
		p.ApplyAllot(customer, s.admin, s.now)
		s.Equal(StatusAllotted, p.Status)
		s.Equal(customer, p.CustomerID)

		err := p.CanVerifyAllotment("asha")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))

		s.Require().NoError(p.CanVerifyAllotment("vikram"))
		p.ApplyVerifyAllotment("vikram", s.now)
		s.True(p.DoubleVerifiedAllotment)
		s.Equal(StatusAllotted, p.Status)

		err = p.CanVerifyAllotment("neha")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("cannot allot twice", func() {
		p := s.newProduct()
		p.ApplyAllot(customer, s.admin, s.now)
		s.True(dErrors.HasCode(p.CanAllot(), dErrors.CodePrecondition))
	})

	s.Run("confirmation is limited to the allotted customer", func() {
		p := s.newProduct()
		p.ApplyAllot(customer, s.admin, s.now)
		s.True(dErrors.HasCode(p.CanConfirm(domain.NewCustomerID()), dErrors.CodeForbidden))
		s.NoError(p.CanConfirm(customer))
	})
}

func (s *ProductSuite) TestTransitionsNeverRegress() {
	order := map[Status]int{
		StatusInStock: 0, StatusAllotted: 1, StatusConfirmed: 2, StatusBilled: 3,
		StatusCompleted: 4, StatusDispatched: 5, StatusDelivered: 6,
	}
	for from, nexts := range transitions {
		for _, to := range nexts {
			if to == StatusSuspended {
				continue
			}
			s.Greater(order[to], order[from], "%s -> %s", from, to)
		}
	}
}

func (s *ProductSuite) TestTerminalStates() {
	for _, terminal := range []Status{StatusSuspended, StatusDelivered} {
		s.True(terminal.IsTerminal())
		for _, to := range AllStatuses() {
			s.False(terminal.CanTransitionTo(to), "%s -> %s", terminal, to)
		}
	}

	s.Run("completed only leaves through dispatch or suspension", func() {
		for _, to := range AllStatuses() {
			s.Equal(to == StatusDispatched || to == StatusSuspended, StatusCompleted.CanTransitionTo(to), to)
		}
	})

	s.Run("every non-terminal state can be suspended", func() {
		for _, from := range AllStatuses() {
			if from.IsTerminal() {
				continue
			}
			s.True(from.CanTransitionTo(StatusSuspended), from)
		}
	})
}

func (s *ProductSuite) TestSuspend() {
	p := s.newProduct()
	s.Require().NoError(p.CanSuspend())
	p.ApplySuspend("weight mismatch", s.admin, s.now)
	s.Equal(StatusSuspended, p.Status)
	s.True(dErrors.HasCode(p.CanSuspend(), dErrors.CodePrecondition))
	s.True(dErrors.HasCode(p.CanAllot(), dErrors.CodePrecondition))
}

func (s *ProductSuite) TestDispatchRequiresUnpackaged() {
	p := s.newProduct()
	p.ApplyAllot(domain.NewCustomerID(), s.admin, s.now)
	p.ApplyBill(domain.NewBillID(), s.admin, s.now)
	s.Require().NoError(p.CanDispatch())
	p.ApplyDispatch(domain.NewPackageID(), s.admin, s.now)
	s.True(dErrors.HasCode(p.CanDispatch(), dErrors.CodePrecondition))
	s.NoError(p.CanDeliver())
}

func (s *ProductSuite) TestCloneIsDeep() {
	p := s.newProduct()
	c := p.Clone()
	c.Custody[0].By = "changed"
	s.Equal("asha", p.Custody[0].By)
}

func (s *ProductSuite) TestParseStatus() {
	st, err := ParseStatus("in_stock")
	s.Require().NoError(err)
	s.Equal(StatusInStock, st)
	_, err = ParseStatus("LOST")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

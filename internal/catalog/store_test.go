package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	customerModels "aurum/internal/customer/models"
	inventoryModels "aurum/internal/inventory/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *Store
	seen  [][]audit.Entry
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.now = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActor(s.ctx, requestcontext.Actor{Name: "asha", Role: domain.RoleAdmin})
	s.seen = nil
	s.store = New(
		WithSettings(Settings{GoldRate: decimal.NewFromInt(60000), OperationsOpen: true}),
		WithCommitHook(func(_ context.Context, entries []audit.Entry) {
			s.seen = append(s.seen, entries)
		}),
	)
}

func (s *StoreSuite) product(barcode string) *inventoryModels.Product {
	p, err := inventoryModels.NewProduct(domain.NewProductID(), barcode, "", "ring", "22K",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10),
		inventoryModels.Actor{Name: "asha", Role: domain.RoleAdmin}, s.now)
	s.Require().NoError(err)
	return p
}

func (s *StoreSuite) TestUpdateCommitsStateAndAuditTogether() {
	p := s.product("A1")
	err := s.store.Update(s.ctx, func(tx *Tx) error {
		if err := tx.InsertProduct(p); err != nil {
			return err
		}
		tx.Append(audit.NewEntry(s.ctx, audit.ActionProductIntake, "A1"))
		return nil
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		got, ok := tx.ProductByBarcode("A1")
		s.True(ok)
		s.Equal(p.ID, got.ID)
		entries := tx.AuditEntries(nil, 0)
		s.Len(entries, 1)
		s.Equal(uint64(1), entries[0].Seq)
		return nil
	}))
	s.Require().Len(s.seen, 1)
	s.Equal(audit.ActionProductIntake, s.seen[0][0].Action)
}

func (s *StoreSuite) TestFailedUpdateLeavesNoTrace() {
	boom := errors.New("boom")
	err := s.store.Update(s.ctx, func(tx *Tx) error {
		s.Require().NoError(tx.InsertProduct(s.product("A1")))
		tx.PutSettings(Settings{GoldRate: decimal.NewFromInt(1)})
		tx.Append(audit.NewEntry(s.ctx, audit.ActionProductIntake, "A1"))
		return boom
	})
	s.ErrorIs(err, boom)

	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		_, ok := tx.ProductByBarcode("A1")
		s.False(ok)
		s.Empty(tx.AuditEntries(nil, 0))
		s.True(tx.Settings().GoldRate.Equal(decimal.NewFromInt(60000)))
		return nil
	}))
	s.Empty(s.seen)
}

func (s *StoreSuite) TestViewDiscardsWrites() {
	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		s.True(tx.ReadOnly())
		return tx.InsertProduct(s.product("A1"))
	}))
	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		s.Empty(tx.Products(nil))
		return nil
	}))
}

func (s *StoreSuite) TestBarcodeUniqueness() {
	s.Run("within one transaction", func() {
		err := s.store.Update(s.ctx, func(tx *Tx) error {
			s.Require().NoError(tx.InsertProduct(s.product("B1")))
			return tx.InsertProduct(s.product("B1"))
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("across transactions", func() {
		s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
			return tx.InsertProduct(s.product("B2"))
		}))
		err := s.store.Update(s.ctx, func(tx *Tx) error {
			return tx.InsertProduct(s.product("B2"))
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *StoreSuite) TestReadsAreCopies() {
	p := s.product("C1")
	s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error { return tx.InsertProduct(p) }))
	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		got, err := tx.Product(p.ID)
		s.Require().NoError(err)
		got.Status = inventoryModels.StatusSuspended
		return nil
	}))
	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		got, err := tx.Product(p.ID)
		s.Require().NoError(err)
		s.Equal(inventoryModels.StatusInStock, got.Status)
		return nil
	}))
}

func (s *StoreSuite) TestSeqIsMonotonicAndNewestFirst() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
			tx.Append(audit.NewEntry(s.ctx, audit.ActionLogin, "one"))
			tx.Append(audit.NewEntry(s.ctx, audit.ActionLogout, "two"))
			return nil
		}))
	}
	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		entries := tx.AuditEntries(nil, 4)
		s.Require().Len(entries, 4)
		s.Equal(uint64(6), entries[0].Seq)
		s.Equal(uint64(3), entries[3].Seq)
		return nil
	}))
}

func (s *StoreSuite) TestResolveIncident() {
	alert := audit.NewEntry(s.ctx, audit.ActionSecurityAlert, "duplicate barcode")
	s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
		tx.Append(alert)
		return nil
	}))

	s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
		e, err := tx.AuditEntry(alert.ID)
		s.Require().NoError(err)
		s.Require().NoError(e.CanResolve())
		e.ApplyResolve("asha", s.now)
		return tx.PutAuditEntry(e)
	}))

	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		open := tx.AuditEntries(func(e audit.Entry) bool { return e.IsOpen() }, 0)
		s.Empty(open)
		e, err := tx.AuditEntry(alert.ID)
		s.Require().NoError(err)
		s.Equal(audit.StatusResolved, e.Status)
		s.Equal("asha", e.ResolvedBy)
		return nil
	}))

	s.Run("only the status may change", func() {
		err := s.store.Update(s.ctx, func(tx *Tx) error {
			e, err := tx.AuditEntry(alert.ID)
			s.Require().NoError(err)
			e.Details = "rewritten"
			return tx.PutAuditEntry(e)
		})
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *StoreSuite) TestInvoiceNumbersSkipTaken() {
	s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
		s.Equal("INV-000001", tx.NextInvoiceNumber())
		return nil
	}))
	s.Require().Error(s.store.Update(s.ctx, func(tx *Tx) error {
		s.Equal("INV-000002", tx.NextInvoiceNumber())
		return errors.New("rolled back")
	}))
	s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
		s.Equal("INV-000002", tx.NextInvoiceNumber())
		return nil
	}))
}

func (s *StoreSuite) TestListOrdering() {
	c1, err := customerModels.NewCustomer(domain.NewCustomerID(), "Meera", "1", "Pune", customerModels.StatusActive, "asha", s.now)
	s.Require().NoError(err)
	c2, err := customerModels.NewCustomer(domain.NewCustomerID(), "Anil", "2", "Pune", customerModels.StatusActive, "asha", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Update(s.ctx, func(tx *Tx) error {
		tx.PutCustomer(c2)
		tx.PutCustomer(c1)
		return nil
	}))
	s.Require().NoError(s.store.View(s.ctx, func(tx *Tx) error {
		list := tx.Customers(nil)
		s.Require().Len(list, 2)
		s.Equal("Meera", list[0].Name)
		s.Equal("Anil", list[1].Name)
		return nil
	}))
}

func (s *StoreSuite) TestPanicInUpdateReleasesLock() {
	s.Require().Panics(func() {
		_ = s.store.Update(s.ctx, func(*Tx) error { panic("scale offline") })
	})

	done := make(chan error, 1)
	go func() {
		done <- s.store.View(s.ctx, func(*Tx) error { return nil })
	}()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("store lock still held after a panic in Update")
	}

	s.NoError(s.store.Update(s.ctx, func(tx *Tx) error {
		return tx.InsertProduct(s.product("AFTER"))
	}))
}

func (s *StoreSuite) TestHooksSeeEntriesInSeqOrder() {
	var (
		mu   sync.Mutex
		seqs []uint64
	)
	store := New(WithCommitHook(func(_ context.Context, entries []audit.Entry) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range entries {
			seqs = append(seqs, e.Seq)
		}
	}))

	const writers = 16
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(store.Update(s.ctx, func(tx *Tx) error {
				tx.Append(audit.NewEntry(s.ctx, audit.ActionProductIntake, fmt.Sprintf("writer %d", i)))
				return nil
			}))
		}()
	}
	wg.Wait()

	s.Require().Len(seqs, writers)
	for i := 1; i < len(seqs); i++ {
		s.Less(seqs[i-1], seqs[i])
	}
}

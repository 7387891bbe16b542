// Package catalog owns every authoritative collection: products, customers,
// users, sessions, bills, packages, tags, settings and the audit trail.
//
// All mutation goes through Update, which holds the single write lock for the
// whole command. Writes are staged on a Tx and applied only when the callback
// returns nil, so multi-entity changes are visible fully or not at all and
// audit entries become visible in the same critical section as the state
// they describe.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	authModels "aurum/internal/auth/models"
	billingModels "aurum/internal/billing/models"
	customerModels "aurum/internal/customer/models"
	inventoryModels "aurum/internal/inventory/models"
	logisticsModels "aurum/internal/logistics/models"
	taggingModels "aurum/internal/tagging/models"
	"aurum/internal/platform/metrics"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// Settings is the process-wide configuration mutated by owner commands.
type Settings struct {
	GoldRate       decimal.Decimal `json:"gold_rate"` // per 10 g
	OperationsOpen bool            `json:"operations_open"`
	UpdatedAt      time.Time       `json:"updated_at"`
	UpdatedBy      string          `json:"updated_by"`
}

// CommitHook receives a copy of the entries appended by a committed
// transaction, in Seq order. It runs after the write lock is released and
// must not block.
type CommitHook func(ctx context.Context, entries []audit.Entry)

type Store struct {
	mu sync.RWMutex

	products  *table[domain.ProductID, *inventoryModels.Product]
	customers *table[domain.CustomerID, *customerModels.Customer]
	users     *table[domain.UserID, *authModels.User]
	sessions  *table[domain.SessionID, *authModels.Session]
	bills     *table[domain.BillID, *billingModels.Bill]
	packages  *table[domain.PackageID, *logisticsModels.Package]
	tags      *table[domain.TagID, *taggingModels.Tag]

	settings   Settings
	entries    []audit.Entry
	entryIndex map[domain.AuditID]int
	seq        uint64
	invoiceSeq uint64

	hooks   []CommitHook
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

// WithCommitHook registers a post-commit observer.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithSettings seeds the initial global settings.
func WithSettings(settings Settings) Option {
	return func(s *Store) { s.settings = settings }
}

func New(opts ...Option) *Store {
	s := &Store{
		products: newTable[domain.ProductID](
			(*inventoryModels.Product).Clone,
			func(p *inventoryModels.Product) string { return p.Barcode },
			func(a, b *inventoryModels.Product) bool { return createdBefore(a.CreatedAt, b.CreatedAt, a.Barcode, b.Barcode) },
		),
		customers: newTable[domain.CustomerID](
			(*customerModels.Customer).Clone,
			nil,
			func(a, b *customerModels.Customer) bool { return createdBefore(a.CreatedAt, b.CreatedAt, a.Name, b.Name) },
		),
		users: newTable[domain.UserID](
			(*authModels.User).Clone,
			func(u *authModels.User) string { return u.Username },
			func(a, b *authModels.User) bool { return a.Username < b.Username },
		),
		sessions: newTable[domain.SessionID](
			(*authModels.Session).Clone,
			nil,
			func(a, b *authModels.Session) bool { return createdBefore(a.CreatedAt, b.CreatedAt, a.ID.String(), b.ID.String()) },
		),
		bills: newTable[domain.BillID](
			(*billingModels.Bill).Clone,
			func(b *billingModels.Bill) string { return b.InvoiceNumber },
			func(a, b *billingModels.Bill) bool { return a.InvoiceNumber < b.InvoiceNumber },
		),
		packages: newTable[domain.PackageID](
			(*logisticsModels.Package).Clone,
			func(p *logisticsModels.Package) string { return p.TrackingID },
			func(a, b *logisticsModels.Package) bool {
				return createdBefore(a.DispatchedAt, b.DispatchedAt, a.TrackingID, b.TrackingID)
			},
		),
		tags: newTable[domain.TagID](
			(*taggingModels.Tag).Clone,
			nil,
			func(a, b *taggingModels.Tag) bool { return createdBefore(a.DraftedAt, b.DraftedAt, a.ID.String(), b.ID.String()) },
		),
		entryIndex: make(map[domain.AuditID]int),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func createdBefore(a, b time.Time, ka, kb string) bool {
	if a.Equal(b) {
		return ka < kb
	}
	return a.Before(b)
}

// Update runs fn under the write lock. If fn returns nil every staged write
// and audit entry is committed together; otherwise nothing is. Commit hooks
// run before the lock is released so they observe entries in Seq order; a
// hook must not block or call back into the store.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	appended, err := s.apply(ctx, fn)
	if err != nil {
		return err
	}
	for _, e := range appended {
		if e.IsOpen() {
			s.metrics.IncIncident(string(e.Action))
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, fn func(tx *Tx) error) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.begin(ctx, false)
	if err := fn(tx); err != nil {
		return nil, err
	}
	appended := s.commit(tx)
	if len(appended) > 0 {
		for _, h := range s.hooks {
			h(ctx, cloneEntries(appended))
		}
	}
	return appended, nil
}

// View runs fn under the read lock. Writes staged on the Tx are discarded.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.begin(ctx, true))
}

func (s *Store) begin(ctx context.Context, readOnly bool) *Tx {
	return &Tx{
		ctx:        ctx,
		readOnly:   readOnly,
		products:   newStaged(s.products),
		customers:  newStaged(s.customers),
		users:      newStaged(s.users),
		sessions:   newStaged(s.sessions),
		bills:      newStaged(s.bills),
		packages:   newStaged(s.packages),
		tags:       newStaged(s.tags),
		settings:   s.settings,
		entries:    s.entries,
		resolved:   make(map[domain.AuditID]audit.Entry),
		invoiceSeq: s.invoiceSeq,
	}
}

// commit applies tx. Caller holds the write lock.
func (s *Store) commit(tx *Tx) []audit.Entry {
	tx.products.commit()
	tx.customers.commit()
	tx.users.commit()
	tx.sessions.commit()
	tx.bills.commit()
	tx.packages.commit()
	tx.tags.commit()
	if tx.settingsDirty {
		s.settings = tx.settings
	}
	s.invoiceSeq = tx.invoiceSeq

	for id, e := range tx.resolved {
		if idx, ok := s.entryIndex[id]; ok {
			s.entries[idx] = e
		}
	}

	appended := make([]audit.Entry, 0, len(tx.appended))
	for _, e := range tx.appended {
		s.seq++
		e.Seq = s.seq
		s.entryIndex[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
		appended = append(appended, e)
	}
	return appended
}

func cloneEntries(entries []audit.Entry) []audit.Entry {
	out := make([]audit.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// formatInvoice renders the n-th invoice number.
func formatInvoice(n uint64) string {
	return fmt.Sprintf("INV-%06d", n)
}

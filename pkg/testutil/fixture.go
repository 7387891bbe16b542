package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"aurum/internal/catalog"
	customerModels "aurum/internal/customer/models"
	inventoryModels "aurum/internal/inventory/models"
	"aurum/internal/platform/command"
	"aurum/internal/platform/metrics"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// Fixture is an empty catalog wired to a command runner, with the log
// output captured in Log.
type Fixture struct {
	Store   *catalog.Store
	Runner  *command.Runner
	Metrics *metrics.Metrics
	Log     *bytes.Buffer
}

// NewFixture builds a catalog open for business at a gold rate of 70000 per 10 g.
func NewFixture(opts ...catalog.Option) *Fixture {
	log := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(log, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	opts = append([]catalog.Option{
		catalog.WithSettings(catalog.Settings{GoldRate: decimal.NewFromInt(70000), OperationsOpen: true}),
		catalog.WithLogger(logger),
		catalog.WithMetrics(m),
	}, opts...)
	store := catalog.New(opts...)
	return &Fixture{
		Store:   store,
		Runner:  command.NewRunner(store, command.WithLogger(logger), command.WithMetrics(m)),
		Metrics: m,
		Log:     log,
	}
}

// SeedCustomer stores a customer directly, bypassing the service.
func (f *Fixture) SeedCustomer(t *testing.T, ctx context.Context, name string, status customerModels.Status) *customerModels.Customer {
	t.Helper()
	c, err := customerModels.NewCustomer(domain.NewCustomerID(), name, "", "", customerModels.StatusActive, "seed", FixedTime)
	require.NoError(t, err)
	c.Status = status
	require.NoError(t, f.Store.Update(ctx, func(tx *catalog.Tx) error {
		tx.PutCustomer(c)
		return nil
	}))
	return c
}

// SeedProduct stores an IN_STOCK product with no stone weight.
func (f *Fixture) SeedProduct(t *testing.T, ctx context.Context, barcode, purity, gold string) *inventoryModels.Product {
	t.Helper()
	weight := decimal.RequireFromString(gold)
	p, err := inventoryModels.NewProduct(domain.NewProductID(), barcode, "", "ring", purity,
		weight, decimal.Zero, weight, inventoryModels.Actor{Name: "seed", Role: domain.RoleSystem}, FixedTime)
	require.NoError(t, err)
	require.NoError(t, f.Store.Update(ctx, func(tx *catalog.Tx) error {
		return tx.InsertProduct(p)
	}))
	return p
}

// Product reloads a product from the catalog.
func (f *Fixture) Product(t *testing.T, id domain.ProductID) *inventoryModels.Product {
	t.Helper()
	var p *inventoryModels.Product
	require.NoError(t, f.Store.View(context.Background(), func(tx *catalog.Tx) error {
		var err error
		p, err = tx.Product(id)
		return err
	}))
	return p
}

// Customer reloads a customer from the catalog.
func (f *Fixture) Customer(t *testing.T, id domain.CustomerID) *customerModels.Customer {
	t.Helper()
	var c *customerModels.Customer
	require.NoError(t, f.Store.View(context.Background(), func(tx *catalog.Tx) error {
		var err error
		c, err = tx.Customer(id)
		return err
	}))
	return c
}

// Entries returns committed audit entries of action, most recent first.
// An empty action returns every entry.
func (f *Fixture) Entries(t *testing.T, action audit.Action) []audit.Entry {
	t.Helper()
	var out []audit.Entry
	require.NoError(t, f.Store.View(context.Background(), func(tx *catalog.Tx) error {
		out = tx.AuditEntries(func(e audit.Entry) bool { return action == "" || e.Action == action }, 0)
		return nil
	}))
	return out
}

package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tideflow-io/tideflow/pkg/config"
)

func TestAllowanceFor(t *testing.T) {
	assert.Equal(t, 40, AllowanceFor("", 0).ConcurrencyBudget)
	assert.Equal(t, 40, AllowanceFor("basic", 0).ConcurrencyBudget)
	assert.Equal(t, 80, AllowanceFor("plus", 0).ConcurrencyBudget)
	assert.Equal(t, 80, AllowanceFor("Plus", 0).ConcurrencyBudget)
	assert.Equal(t, 16, AllowanceFor("plus", 16).ConcurrencyBudget, "explicit override wins")
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	orders, ok := c.Get("orders")
	require.True(t, ok)
	assert.True(t, orders.Async)
	assert.Equal(t, "orders", orders.Endpoint)
	assert.Equal(t, "orders", orders.ResultKey)

	checkouts, ok := c.Get("abandoned_checkouts")
	require.True(t, ok)
	assert.True(t, checkouts.Async)
	assert.Equal(t, "checkouts", checkouts.Endpoint)
	assert.Equal(t, "checkouts", checkouts.ResultKey)

	collects, ok := c.Get("collects")
	require.True(t, ok)
	assert.False(t, collects.Async)
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(StreamSpec{Name: "orders"}))
	assert.Error(t, c.Register(StreamSpec{Name: "orders"}))
	assert.Error(t, c.Register(StreamSpec{}))
}

func TestCatalogListSorted(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(StreamSpec{Name: "products"}))
	require.NoError(t, c.Register(StreamSpec{Name: "customers"}))

	specs := c.List()
	require.Len(t, specs, 2)
	assert.Equal(t, "customers", specs[0].Name)
	assert.Equal(t, "products", specs[1].Name)
}

func TestCatalogFromConfig(t *testing.T) {
	catalog, err := CatalogFromConfig([]config.StreamConfig{
		{Name: "invoices", Async: true},
		{Name: "payments", Endpoint: "billing/payments", ResultKey: "payments"},
	})
	require.NoError(t, err)

	inv, ok := catalog.Get("invoices")
	require.True(t, ok)
	assert.Equal(t, "invoices", inv.Endpoint, "endpoint defaults to the stream name")
	assert.True(t, inv.Async)

	pay, ok := catalog.Get("payments")
	require.True(t, ok)
	assert.Equal(t, "billing/payments", pay.Endpoint)

	_, ok = catalog.Get("orders")
	assert.False(t, ok, "configured catalogs replace the built-in one")
}

func TestCatalogFromConfigEmptyFallsBack(t *testing.T) {
	catalog, err := CatalogFromConfig(nil)
	require.NoError(t, err)
	_, ok := catalog.Get("orders")
	assert.True(t, ok)
}

package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aromasabor/internal/database"
	"aromasabor/internal/metrics"
	"aromasabor/internal/models"
	"aromasabor/internal/schema"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newGateway(t *testing.T) *Gateway {
	t.Helper()
	reg := models.NewRegistry()
	store, err := database.NewJSONDatabase("", reg)
	require.NoError(t, err)
	return NewGateway(store, reg, quietLogger(), nil)
}

func createCategory(t *testing.T, g *Gateway, name string) int64 {
	t.Helper()
	id, err := g.Create(context.Background(), models.CategoryEntity, schema.Values{models.CategoryName: name})
	require.NoError(t, err)
	return id
}

func pimenta(categoryID int64) schema.Values {
	return schema.Values{
		models.ProductName:        "Pimenta",
		models.ProductDescription: "Pimenta-do-reino",
		models.ProductPrice:       decimal.RequireFromString("12.50"),
		models.ProductStock:       int64(10),
		models.ProductSKU:         "PIM-001",
		models.ProductCategoryID:  categoryID,
	}
}

func TestGateway_ProductRoundTripKeepsPrice(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	cat := createCategory(t, g, "Especiarias")

	id, err := g.Create(ctx, models.ProductEntity, pimenta(cat))
	require.NoError(t, err)

	m, err := g.Get(ctx, models.ProductEntity, id)
	require.NoError(t, err)
	p := m.(*models.Product)
	assert.Equal(t, "12.5", p.Price.String())
	assert.Equal(t, "12.50", p.Price.StringFixed(2))
	assert.Equal(t, int64(10), p.Stock)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestGateway_UniqueConflict(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	createCategory(t, g, "Ervas")

	_, err := g.Create(ctx, models.CategoryEntity, schema.Values{models.CategoryName: "Ervas"})
	require.ErrorIs(t, err, ErrConflict)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, models.CategoryName, ce.Field)

	n, err := g.Count(ctx, models.CategoryEntity)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGateway_ConcurrentCreatesOfSameValue(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)

	const workers = 12
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Create(ctx, models.CouponEntity, schema.Values{
				models.CouponCode:         "BEMVINDO10",
				models.CouponDiscountType: models.DiscountPercentage,
				models.CouponValue:        decimal.NewFromInt(10),
				models.CouponIsActive:     true,
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestGateway_MissingReferenceLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)

	_, err := g.Create(ctx, models.ProductEntity, pimenta(99))
	require.ErrorIs(t, err, ErrForeignKeyMissing)
	var re *ReferenceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, models.ProductCategoryID, re.Field)

	n, err := g.Count(ctx, models.ProductEntity)
	require.NoError(t, err)
	assert.Zero(t, n)

	cat := createCategory(t, g, "Especiarias")
	id, err := g.Create(ctx, models.ProductEntity, pimenta(cat))
	require.NoError(t, err)

	changed := pimenta(99)
	changed[models.ProductName] = "Pimenta rosa"
	err = g.Update(ctx, models.ProductEntity, id, changed)
	require.ErrorIs(t, err, ErrForeignKeyMissing)

	m, err := g.Get(ctx, models.ProductEntity, id)
	require.NoError(t, err)
	assert.Equal(t, "Pimenta", m.(*models.Product).Name)
	assert.Equal(t, cat, m.(*models.Product).CategoryID)
}

func TestGateway_DeleteCategoryWithDependents(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	cat := createCategory(t, g, "Especiarias")
	pid, err := g.Create(ctx, models.ProductEntity, pimenta(cat))
	require.NoError(t, err)

	err = g.Delete(ctx, models.CategoryEntity, cat)
	require.ErrorIs(t, err, ErrDependencyExists)
	var de *DependencyError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "products", de.Dependent)

	_, err = g.Get(ctx, models.CategoryEntity, cat)
	require.NoError(t, err)
	_, err = g.Get(ctx, models.ProductEntity, pid)
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, models.ProductEntity, pid))
	require.NoError(t, g.Delete(ctx, models.CategoryEntity, cat))
	_, err = g.Get(ctx, models.CategoryEntity, cat)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGateway_DeleteBlockedByAnnouncement(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	cat := createCategory(t, g, "Classificados")
	_, err := g.Create(ctx, models.AnnouncementEntity, schema.Values{
		models.AnnouncementTitle:      "Vendo açafrão",
		models.AnnouncementPrice:      decimal.NewFromInt(30),
		models.AnnouncementCategoryID: cat,
	})
	require.NoError(t, err)

	err = g.Delete(ctx, models.CategoryEntity, cat)
	assert.ErrorIs(t, err, ErrDependencyExists)
}

func TestGateway_NotFound(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)

	err := g.Update(ctx, models.CategoryEntity, 5, schema.Values{models.CategoryName: "Nada"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, g.Delete(ctx, models.CategoryEntity, 5), ErrNotFound)
	_, err = g.Get(ctx, models.CategoryEntity, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGateway_IdempotentEdit(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	cat := createCategory(t, g, "Especiarias")
	id, err := g.Create(ctx, models.ProductEntity, pimenta(cat))
	require.NoError(t, err)

	before, err := g.Get(ctx, models.ProductEntity, id)
	require.NoError(t, err)

	require.NoError(t, g.Update(ctx, models.ProductEntity, id, pimenta(cat)))
	require.NoError(t, g.Update(ctx, models.ProductEntity, id, pimenta(cat)))

	after, err := g.Get(ctx, models.ProductEntity, id)
	require.NoError(t, err)
	for k, v := range before.Values() {
		assert.True(t, schema.Equal(v, after.Values()[k]), "field %s changed", k)
	}
	assert.Equal(t, before.(*models.Product).CreatedAt, after.(*models.Product).CreatedAt)
}

func TestGateway_UpdateConflictsWithOtherRowOnly(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	createCategory(t, g, "Ervas")
	second := createCategory(t, g, "Sementes")

	err := g.Update(ctx, models.CategoryEntity, second, schema.Values{models.CategoryName: "Ervas"})
	assert.ErrorIs(t, err, ErrConflict)

	err = g.Update(ctx, models.CategoryEntity, second, schema.Values{
		models.CategoryName:        "Sementes",
		models.CategoryDescription: "Grãos inteiros",
	})
	assert.NoError(t, err)
}

func TestGateway_ListByAndLabels(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)
	a := createCategory(t, g, "Ervas")
	b := createCategory(t, g, "Sementes")

	_, err := g.Create(ctx, models.ProductEntity, pimenta(a))
	require.NoError(t, err)

	rows, err := g.ListBy(ctx, models.ProductEntity, models.ProductCategoryID, a)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, err = g.ListBy(ctx, models.ProductEntity, models.ProductCategoryID, b)
	require.NoError(t, err)
	assert.Empty(t, rows)

	labels, err := g.Labels(ctx, models.CategoryEntity)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{a: "Ervas", b: "Sementes"}, labels)
}

func TestGateway_RecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := models.NewRegistry()
	store, err := database.NewJSONDatabase("", reg)
	require.NoError(t, err)
	promReg := prometheus.NewRegistry()
	g := NewGateway(store, reg, quietLogger(), metrics.New(promReg))

	createCategory(t, g, "Ervas")
	_, err = g.Create(ctx, models.CategoryEntity, schema.Values{models.CategoryName: "Ervas"})
	require.Error(t, err)

	n, err := testutil.GatherAndCount(promReg, "admin_gateway_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

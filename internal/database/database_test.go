package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aromasabor/internal/models"
	"aromasabor/internal/schema"
)

func newMemoryDB(t *testing.T) *JSONDatabase {
	t.Helper()
	db, err := NewJSONDatabase("", models.NewRegistry())
	require.NoError(t, err)
	return db
}

func insert(t *testing.T, db Store, m schema.Model) int64 {
	t.Helper()
	require.NoError(t, db.Transaction(context.Background(), func(tx Tx) error {
		return tx.Insert(context.Background(), m)
	}))
	return m.PrimaryKey()
}

func TestJSONDatabase_InsertGetList(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)

	catID := insert(t, db, &models.Category{Name: "Ervas"})
	assert.Equal(t, int64(1), catID)

	p := &models.Product{Name: "Orégano", Description: "Seco", Price: decimal.RequireFromString("12.50"), SKU: "ORE-1", CategoryID: catID}
	pid := insert(t, db, p)

	var got models.Product
	require.NoError(t, db.Get(ctx, &got, pid))
	assert.Equal(t, "Orégano", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.50")))

	rows, err := db.List(ctx, models.ProductEntity, Eq(models.ProductCategoryID, catID))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pid, rows[0].PrimaryKey())

	n, err := db.Count(ctx, models.ProductEntity, Eq(models.ProductSKU, "ORE-1"), Ne(IDColumn, pid))
	require.NoError(t, err)
	assert.Zero(t, n)

	err = db.Get(ctx, &got, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONDatabase_UniqueIndex(t *testing.T) {
	db := newMemoryDB(t)
	insert(t, db, &models.Category{Name: "Ervas"})

	err := db.Transaction(context.Background(), func(tx Tx) error {
		return tx.Insert(context.Background(), &models.Category{Name: "Ervas"})
	})
	var uv *UniqueViolation
	require.True(t, errors.As(err, &uv))
	assert.Equal(t, "categories", uv.Table)
	assert.Equal(t, "name", uv.Column)
}

func TestJSONDatabase_UpdateKeepsOwnUniqueValue(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	id := insert(t, db, &models.Category{Name: "Ervas"})

	require.NoError(t, db.Transaction(ctx, func(tx Tx) error {
		var c models.Category
		if err := tx.Get(ctx, &c, id); err != nil {
			return err
		}
		c.Description = "Folhas secas"
		return tx.Update(ctx, &c)
	}))

	var c models.Category
	require.NoError(t, db.Get(ctx, &c, id))
	assert.Equal(t, "Folhas secas", c.Description)

	err := db.Transaction(ctx, func(tx Tx) error {
		return tx.Update(ctx, &models.Category{ID: 99, Name: "Outra"})
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONDatabase_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)

	err := db.Transaction(ctx, func(tx Tx) error {
		return tx.Insert(ctx, &models.Product{Name: "X", SKU: "X-1", CategoryID: 7})
	})
	var fk *ForeignKeyViolation
	require.True(t, errors.As(err, &fk))
	assert.Equal(t, "category_id", fk.Column)

	catID := insert(t, db, &models.Category{Name: "Pimentas"})
	insert(t, db, &models.Announcement{Title: "Promoção", CategoryID: catID})

	err = db.Transaction(ctx, func(tx Tx) error {
		return tx.Delete(ctx, models.CategoryEntity, catID)
	})
	require.True(t, errors.As(err, &fk))
	assert.Equal(t, "announcements", fk.Table)

	n, err := db.Count(ctx, models.CategoryEntity)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestJSONDatabase_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	boom := errors.New("boom")

	err := db.Transaction(ctx, func(tx Tx) error {
		if err := tx.Insert(ctx, &models.Category{Name: "Ervas"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := db.Count(ctx, models.CategoryEntity)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJSONDatabase_IDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	first := insert(t, db, &models.Coupon{Code: "A", DiscountType: models.DiscountFixed})
	require.NoError(t, db.Transaction(ctx, func(tx Tx) error {
		return tx.Delete(ctx, models.CouponEntity, first)
	}))
	second := insert(t, db, &models.Coupon{Code: "B", DiscountType: models.DiscountFixed})
	assert.Greater(t, second, first)
}

func TestJSONDatabase_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	db, err := NewJSONDatabase(path, models.NewRegistry())
	require.NoError(t, err)
	id := insert(t, db, &models.Customer{FirstName: "Ana", LastName: "Souza", Email: "ana@example.com"})

	reopened, err := NewJSONDatabase(path, models.NewRegistry())
	require.NoError(t, err)

	var c models.Customer
	require.NoError(t, reopened.Get(ctx, &c, id))
	assert.Equal(t, "ana@example.com", c.Email)

	next := insert(t, reopened, &models.Customer{FirstName: "Bia", LastName: "Lima", Email: "bia@example.com"})
	assert.Equal(t, id+1, next)
}

func TestJSONDatabase_FailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	db, err := NewJSONDatabase(path, models.NewRegistry())
	require.NoError(t, err)

	// Point the file at a directory that no longer exists.
	db.filePath = filepath.Join(dir, "gone", "data.json")
	err = db.Transaction(ctx, func(tx Tx) error {
		return tx.Insert(ctx, &models.Category{Name: "Ervas"})
	})
	require.Error(t, err)

	n, err := db.Count(ctx, models.CategoryEntity)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJSONDatabase_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewJSONDatabase(path, models.NewRegistry())
	assert.Error(t, err)
}

func TestJSONDatabase_ConcurrentInsertsOfSameKey(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(ctx, func(tx Tx) error {
				return tx.Insert(ctx, &models.Category{Name: "Ervas"})
			})
			mu.Lock()
			defer mu.Unlock()
			var uv *UniqueViolation
			switch {
			case err == nil:
				ok++
			case errors.As(err, &uv):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dups)
}

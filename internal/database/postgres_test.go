package database

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"

	"aromasabor/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newMockDB(t *testing.T) (*PostgresDatabase, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	p, err := Open(postgres.New(postgres.Config{Conn: sqlDB}), quietLogger())
	require.NoError(t, err)
	return p, mock
}

func TestPostgres_GetNotFound(t *testing.T) {
	p, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE "categories"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at"}))

	var c models.Category
	err := p.Get(context.Background(), &c, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get(t *testing.T) {
	p, mock := newMockDB(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "categories"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at"}).
			AddRow(3, "Ervas", "Folhas", now))

	var c models.Category
	require.NoError(t, p.Get(context.Background(), &c, 3))
	assert.Equal(t, int64(3), c.ID)
	assert.Equal(t, "Ervas", c.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountBuildsFilters(t *testing.T) {
	p, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE "sku" = \$1 AND "id" <> \$2`).
		WithArgs("PIM-001", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := p.Count(context.Background(), models.ProductEntity, Eq("sku", "PIM-001"), Ne(IDColumn, int64(4)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_List(t *testing.T) {
	p, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "coupons" ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "discount_type", "value", "expiration_date", "is_active"}).
			AddRow(1, "A10", "percentage", "10.00", nil, true).
			AddRow(2, "B5", "fixed", "5.00", nil, false))

	rows, err := p.List(context.Background(), models.CouponEntity)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	first := rows[0].(*models.Coupon)
	assert.Equal(t, "A10", first.Code)
	assert.Nil(t, first.ExpirationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertUniqueViolation(t *testing.T) {
	p, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "categories"`).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			TableName:      "categories",
			ConstraintName: "uq_categories_name",
			Detail:         "Key (name)=(Ervas) already exists.",
		})
	mock.ExpectRollback()

	err := p.Transaction(context.Background(), func(tx Tx) error {
		return tx.Insert(context.Background(), &models.Category{Name: "Ervas"})
	})
	var uv *UniqueViolation
	require.True(t, errors.As(err, &uv), "got %v", err)
	assert.Equal(t, "name", uv.Column)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteMissingRowRollsBack(t *testing.T) {
	p, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "products"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := p.Transaction(context.Background(), func(tx Tx) error {
		return tx.Delete(context.Background(), models.ProductEntity, 7)
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteRestricted(t *testing.T) {
	p, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "categories"`).
		WillReturnError(&pgconn.PgError{
			Code:      "23503",
			TableName: "products",
			Detail:    `Key (id)=(1) is still referenced from table "products".`,
		})
	mock.ExpectRollback()

	err := p.Transaction(context.Background(), func(tx Tx) error {
		return tx.Delete(context.Background(), models.CategoryEntity, 1)
	})
	var fk *ForeignKeyViolation
	require.True(t, errors.As(err, &fk), "got %v", err)
	assert.Equal(t, "products", fk.Table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))

	err := translate(&pgconn.PgError{Code: "23505", TableName: "coupons", ConstraintName: "uq_coupons_code"})
	var uv *UniqueViolation
	require.True(t, errors.As(err, &uv))
	assert.Equal(t, "code", uv.Column)

	err = translate(&pgconn.PgError{Code: "23503", TableName: "products", Detail: `Key (category_id)=(9) is not present in table "categories".`})
	var fk *ForeignKeyViolation
	require.True(t, errors.As(err, &fk))
	assert.Equal(t, "category_id", fk.Column)
}

// TestPostgres_Integration runs against a real server when DATABASE_URL is
// set, directly or through a .env file.
func TestPostgres_Integration(t *testing.T) {
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	p, err := OpenPostgres(dsn, PoolConfig{MaxOpenConns: 4}, quietLogger())
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Migrate(ctx, models.All()...))

	name := "Integração " + time.Now().Format("150405.000000")
	cat := &models.Category{Name: name}
	require.NoError(t, p.Transaction(ctx, func(tx Tx) error { return tx.Insert(ctx, cat) }))
	t.Cleanup(func() {
		_ = p.Transaction(ctx, func(tx Tx) error { return tx.Delete(ctx, models.CategoryEntity, cat.ID) })
	})

	err = p.Transaction(ctx, func(tx Tx) error { return tx.Insert(ctx, &models.Category{Name: name}) })
	var uv *UniqueViolation
	require.True(t, errors.As(err, &uv), "got %v", err)
	assert.Equal(t, "name", uv.Column)
}

package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aromasabor/internal/schema"
)

func TestRegistry_CategoryDependents(t *testing.T) {
	reg := NewRegistry()

	var tables []string
	for _, d := range reg.Dependents(CategoryEntity) {
		tables = append(tables, d.Entity.Table)
		assert.Equal(t, "category_id", d.Field.Name)
	}
	assert.ElementsMatch(t, []string{"products", "announcements"}, tables)
	assert.Empty(t, reg.Dependents(CouponEntity))
}

func TestEntities_TableNamesMatchModels(t *testing.T) {
	for _, e := range NewRegistry().Entities() {
		m := e.New()
		assert.Equal(t, e.Table, m.TableName(), e.Name)
		for _, f := range e.UniqueFields() {
			assert.Contains(t, m.Values(), f.Name, "%s.%s must be exposed for the uniqueness check", e.Name, f.Name)
		}
		for _, f := range e.ForeignKeys() {
			assert.Contains(t, m.Values(), f.Name, "%s.%s must be exposed for the reference check", e.Name, f.Name)
		}
	}
}

func TestProduct_ApplyValuesRoundTrip(t *testing.T) {
	three := int64(3)
	in := schema.Values{
		ProductName:        "Pimenta",
		ProductDescription: "Pimenta-do-reino",
		ProductPrice:       decimal.RequireFromString("12.50"),
		ProductStock:       int64(10),
		ProductSKU:         "PIM-001",
		ProductOrigin:      "Brasil",
		ProductSpiciness:   three,
		ProductCategoryID:  int64(1),
	}

	var p Product
	p.Apply(in)
	require.NotNil(t, p.Spiciness)
	assert.Equal(t, int64(3), *p.Spiciness)

	out := p.Values()
	for k, v := range in {
		assert.True(t, schema.Equal(v, out[k]), "field %s: %v != %v", k, v, out[k])
	}
	assert.Len(t, out, len(in))
}

func TestProduct_OptionalSpicinessStaysAbsent(t *testing.T) {
	var p Product
	p.Apply(schema.Values{ProductName: "Cominho"})
	assert.Nil(t, p.Spiciness)
	assert.False(t, p.Values().Has(ProductSpiciness))
}

func TestCoupon_ApplyValuesRoundTrip(t *testing.T) {
	day := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	var c Coupon
	c.Apply(schema.Values{
		CouponCode:           "BEMVINDO10",
		CouponDiscountType:   DiscountPercentage,
		CouponValue:          decimal.NewFromInt(10),
		CouponExpirationDate: day,
		CouponIsActive:       true,
	})
	require.NotNil(t, c.ExpirationDate)
	assert.True(t, c.ExpirationDate.Equal(day))
	assert.True(t, c.IsActive)

	v := c.Values()
	assert.Equal(t, "BEMVINDO10", v.String(CouponCode))
	assert.True(t, v.Date(CouponExpirationDate).Equal(day))
}

func TestCoupon_PercentageCap(t *testing.T) {
	field, msg := percentageCap(schema.Values{
		CouponDiscountType: DiscountPercentage,
		CouponValue:        decimal.RequireFromString("100.01"),
	})
	assert.Equal(t, CouponValue, field)
	assert.NotEmpty(t, msg)

	field, _ = percentageCap(schema.Values{
		CouponDiscountType: DiscountFixed,
		CouponValue:        decimal.NewFromInt(150),
	})
	assert.Empty(t, field)
}

func TestUser_ValuesNeverCarryTheSecret(t *testing.T) {
	var u User
	u.Apply(schema.Values{UserUsername: "admin", UserEmail: "a@b.co", UserPassword: "s3cret-pass"})
	assert.Empty(t, u.PasswordHash)
	assert.NotContains(t, u.Values(), UserPassword)
}

func TestStamp_KeepsExistingTimestamp(t *testing.T) {
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := Category{CreatedAt: first}
	c.Stamp(time.Now())
	assert.Equal(t, first, c.CreatedAt)

	var fresh Category
	fresh.Stamp(first)
	assert.Equal(t, first, fresh.CreatedAt)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"

	"aromasabor/internal/schema"
)

// Coupon field names.
const (
	CouponCode           = "code"
	CouponDiscountType   = "discount_type"
	CouponValue          = "value"
	CouponExpirationDate = "expiration_date"
	CouponIsActive       = "is_active"
)

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Coupon struct {
	ID             int64           `json:"id" gorm:"primaryKey"`
	Code           string          `json:"code" gorm:"size:50;not null;uniqueIndex:uq_coupons_code"`
	DiscountType   string          `json:"discount_type" gorm:"size:20;not null;default:percentage"`
	Value          decimal.Decimal `json:"value" gorm:"type:numeric(12,2);not null"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty" gorm:"type:date"`
	IsActive       bool            `json:"is_active" gorm:"not null"`
}

var CouponEntity = &schema.Entity{
	Name:   "coupon",
	Plural: "coupons",
	Table:  "coupons",
	Fields: []schema.Field{
		{Name: CouponCode, Label: "Coupon code", Kind: schema.Text, Required: true, Unique: true, MaxLen: 50},
		{Name: CouponDiscountType, Label: "Discount type", Kind: schema.Enum, Required: true, Default: DiscountPercentage, Choices: []schema.Choice{
			{Value: DiscountPercentage, Label: "Percentage (%)"},
			{Value: DiscountFixed, Label: "Fixed amount"},
		}},
		{Name: CouponValue, Label: "Value", Kind: schema.Decimal, Required: true, Min: schema.Bound(0), Max: schema.MaxMoney, Scale: 2},
		{Name: CouponExpirationDate, Label: "Expiration date", Kind: schema.Date},
		{Name: CouponIsActive, Label: "Active", Kind: schema.Boolean, Default: "on"},
	},
	Rules: []schema.Rule{percentageCap},
	New:   func() schema.Model { return &Coupon{} },
}

var hundred = decimal.NewFromInt(100)

func percentageCap(v schema.Values) (string, string) {
	if v.String(CouponDiscountType) == DiscountPercentage && v.Decimal(CouponValue).GreaterThan(hundred) {
		return CouponValue, "A percentage discount cannot exceed 100."
	}
	return "", ""
}

func (Coupon) TableName() string { return "coupons" }

func (c *Coupon) PrimaryKey() int64      { return c.ID }
func (c *Coupon) SetPrimaryKey(id int64) { c.ID = id }
func (c *Coupon) Label() string          { return c.Code }

func (c *Coupon) Apply(v schema.Values) {
	c.Code = v.String(CouponCode)
	c.DiscountType = v.String(CouponDiscountType)
	c.Value = v.Decimal(CouponValue)
	c.ExpirationDate = v.Date(CouponExpirationDate)
	c.IsActive = v.Bool(CouponIsActive)
}

func (c *Coupon) Values() schema.Values {
	v := schema.Values{
		CouponCode:         c.Code,
		CouponDiscountType: c.DiscountType,
		CouponValue:        c.Value,
		CouponIsActive:     c.IsActive,
	}
	v.Set(CouponExpirationDate, c.ExpirationDate)
	return v
}

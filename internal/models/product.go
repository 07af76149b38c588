package models

import (
	"time"

	"github.com/shopspring/decimal"

	"aromasabor/internal/schema"
)

// Product field names.
const (
	ProductName        = "name"
	ProductDescription = "description"
	ProductPrice       = "price"
	ProductStock       = "stock"
	ProductSKU         = "sku"
	ProductOrigin      = "origin"
	ProductSpiciness   = "spiciness"
	ProductCategoryID  = "category_id"
)

// Product is a spice sold in the shop.
type Product struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:120;not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock       int64           `json:"stock" gorm:"not null;default:0"`
	SKU         string          `json:"sku" gorm:"column:sku;size:50;not null;uniqueIndex:uq_products_sku"`
	Origin      string          `json:"origin" gorm:"size:100"`
	// Spiciness is 0 (N/A) to 5; nil when never set.
	Spiciness  *int64    `json:"spiciness,omitempty"`
	CategoryID int64     `json:"category_id" gorm:"not null;index"`
	Category   *Category `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProductEntity declares the product form and table.
var ProductEntity = &schema.Entity{
	Name:   "product",
	Plural: "products",
	Table:  "products",
	Fields: []schema.Field{
		{Name: ProductName, Label: "Name", Kind: schema.Text, Required: true, MaxLen: 120},
		{Name: ProductDescription, Label: "Description", Kind: schema.Text, Required: true, Multiline: true},
		{Name: ProductPrice, Label: "Price", Kind: schema.Decimal, Required: true, Min: schema.Bound(0), Max: schema.MaxMoney, Scale: 2},
		{Name: ProductStock, Label: "Stock", Kind: schema.Integer, Required: true, Min: schema.Bound(0)},
		{Name: ProductSKU, Label: "SKU", Kind: schema.Text, Required: true, Unique: true, MaxLen: 50},
		{Name: ProductOrigin, Label: "Origin", Kind: schema.Text, MaxLen: 100},
		{Name: ProductSpiciness, Label: "Spiciness (0 = N/A)", Kind: schema.Integer, Min: schema.Bound(0), Max: schema.Bound(5)},
		{Name: ProductCategoryID, Label: "Category", Kind: schema.ForeignKey, Required: true, References: "categories"},
	},
	New: func() schema.Model { return &Product{} },
}

func (Product) TableName() string { return "products" }

func (p *Product) PrimaryKey() int64      { return p.ID }
func (p *Product) SetPrimaryKey(id int64) { p.ID = id }
func (p *Product) Label() string          { return p.Name }

func (p *Product) Stamp(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
}

func (p *Product) Apply(v schema.Values) {
	p.Name = v.String(ProductName)
	p.Description = v.String(ProductDescription)
	p.Price = v.Decimal(ProductPrice)
	p.Stock = v.Int(ProductStock)
	p.SKU = v.String(ProductSKU)
	p.Origin = v.String(ProductOrigin)
	p.Spiciness = v.OptionalInt(ProductSpiciness)
	p.CategoryID = v.Int(ProductCategoryID)
}

func (p *Product) Values() schema.Values {
	v := schema.Values{
		ProductName:        p.Name,
		ProductDescription: p.Description,
		ProductPrice:       p.Price,
		ProductStock:       p.Stock,
		ProductSKU:         p.SKU,
		ProductOrigin:      p.Origin,
		ProductCategoryID:  p.CategoryID,
	}
	v.Set(ProductSpiciness, p.Spiciness)
	return v
}

package models

import (
	"time"

	"aromasabor/internal/schema"
)

// Customer field names.
const (
	CustomerFirstName = "first_name"
	CustomerLastName  = "last_name"
	CustomerEmail     = "email"
	CustomerPhone     = "phone"
	CustomerAddress   = "address"
	CustomerCity      = "city"
	CustomerState     = "state"
	CustomerZipCode   = "zip_code"
)

type Customer struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	FirstName string    `json:"first_name" gorm:"size:100;not null"`
	LastName  string    `json:"last_name" gorm:"size:100;not null"`
	Email     string    `json:"email" gorm:"size:120;not null;uniqueIndex:uq_customers_email"`
	Phone     string    `json:"phone" gorm:"size:20"`
	Address   string    `json:"address" gorm:"size:255"`
	City      string    `json:"city" gorm:"size:100"`
	State     string    `json:"state" gorm:"size:50"`
	ZipCode   string    `json:"zip_code" gorm:"size:20"`
	CreatedAt time.Time `json:"created_at"`
}

var CustomerEntity = &schema.Entity{
	Name:   "customer",
	Plural: "customers",
	Table:  "customers",
	Fields: []schema.Field{
		{Name: CustomerFirstName, Label: "First name", Kind: schema.Text, Required: true, MaxLen: 100},
		{Name: CustomerLastName, Label: "Last name", Kind: schema.Text, Required: true, MaxLen: 100},
		{Name: CustomerEmail, Label: "Email", Kind: schema.Text, Required: true, Unique: true, MaxLen: 120, Format: schema.FormatEmail},
		{Name: CustomerPhone, Label: "Phone", Kind: schema.Text, MaxLen: 20},
		{Name: CustomerAddress, Label: "Address", Kind: schema.Text, MaxLen: 255},
		{Name: CustomerCity, Label: "City", Kind: schema.Text, MaxLen: 100},
		{Name: CustomerState, Label: "State", Kind: schema.Text, MaxLen: 50},
		{Name: CustomerZipCode, Label: "ZIP code", Kind: schema.Text, MaxLen: 20},
	},
	New: func() schema.Model { return &Customer{} },
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) PrimaryKey() int64      { return c.ID }
func (c *Customer) SetPrimaryKey(id int64) { c.ID = id }
func (c *Customer) Label() string          { return c.FirstName + " " + c.LastName }

func (c *Customer) Stamp(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
}

func (c *Customer) Apply(v schema.Values) {
	c.FirstName = v.String(CustomerFirstName)
	c.LastName = v.String(CustomerLastName)
	c.Email = v.String(CustomerEmail)
	c.Phone = v.String(CustomerPhone)
	c.Address = v.String(CustomerAddress)
	c.City = v.String(CustomerCity)
	c.State = v.String(CustomerState)
	c.ZipCode = v.String(CustomerZipCode)
}

func (c *Customer) Values() schema.Values {
	return schema.Values{
		CustomerFirstName: c.FirstName,
		CustomerLastName:  c.LastName,
		CustomerEmail:     c.Email,
		CustomerPhone:     c.Phone,
		CustomerAddress:   c.Address,
		CustomerCity:      c.City,
		CustomerState:     c.State,
		CustomerZipCode:   c.ZipCode,
	}
}

package models

import (
	"time"

	"aromasabor/internal/schema"
)

// Category field names.
const (
	CategoryName        = "name"
	CategoryDescription = "description"
)

// Category groups products and announcements.
type Category struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null;uniqueIndex:uq_categories_name"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryEntity declares the category form and table.
var CategoryEntity = &schema.Entity{
	Name:   "category",
	Plural: "categories",
	Table:  "categories",
	Fields: []schema.Field{
		{Name: CategoryName, Label: "Name", Kind: schema.Text, Required: true, Unique: true, MinLen: 3, MaxLen: 100},
		{Name: CategoryDescription, Label: "Description", Kind: schema.Text, MaxLen: 500, Multiline: true},
	},
	New: func() schema.Model { return &Category{} },
}

func (Category) TableName() string { return "categories" }

func (c *Category) PrimaryKey() int64      { return c.ID }
func (c *Category) SetPrimaryKey(id int64) { c.ID = id }
func (c *Category) Label() string          { return c.Name }

func (c *Category) Stamp(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
}

func (c *Category) Apply(v schema.Values) {
	c.Name = v.String(CategoryName)
	c.Description = v.String(CategoryDescription)
}

func (c *Category) Values() schema.Values {
	return schema.Values{
		CategoryName:        c.Name,
		CategoryDescription: c.Description,
	}
}

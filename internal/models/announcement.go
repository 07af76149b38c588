package models

import (
	"time"

	"github.com/shopspring/decimal"

	"aromasabor/internal/schema"
)

// Announcement field names.
const (
	AnnouncementTitle       = "title"
	AnnouncementDescription = "description"
	AnnouncementPrice       = "price"
	AnnouncementCategoryID  = "category_id"
)

// Announcement is a classified listed under a category.
type Announcement struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Title       string          `json:"title" gorm:"size:120;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CategoryID  int64           `json:"category_id" gorm:"not null;index"`
	Category    *Category       `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
}

var AnnouncementEntity = &schema.Entity{
	Name:   "announcement",
	Plural: "announcements",
	Table:  "announcements",
	Fields: []schema.Field{
		{Name: AnnouncementTitle, Label: "Title", Kind: schema.Text, Required: true, MinLen: 5, MaxLen: 120},
		{Name: AnnouncementDescription, Label: "Description", Kind: schema.Text, Multiline: true},
		{Name: AnnouncementPrice, Label: "Price", Kind: schema.Decimal, Required: true, Min: schema.Bound(0), Max: schema.MaxMoney, Scale: 2},
		{Name: AnnouncementCategoryID, Label: "Category", Kind: schema.ForeignKey, Required: true, References: "categories"},
	},
	New: func() schema.Model { return &Announcement{} },
}

func (Announcement) TableName() string { return "announcements" }

func (a *Announcement) PrimaryKey() int64      { return a.ID }
func (a *Announcement) SetPrimaryKey(id int64) { a.ID = id }
func (a *Announcement) Label() string          { return a.Title }

func (a *Announcement) Stamp(now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
}

func (a *Announcement) Apply(v schema.Values) {
	a.Title = v.String(AnnouncementTitle)
	a.Description = v.String(AnnouncementDescription)
	a.Price = v.Decimal(AnnouncementPrice)
	a.CategoryID = v.Int(AnnouncementCategoryID)
}

func (a *Announcement) Values() schema.Values {
	return schema.Values{
		AnnouncementTitle:       a.Title,
		AnnouncementDescription: a.Description,
		AnnouncementPrice:       a.Price,
		AnnouncementCategoryID:  a.CategoryID,
	}
}

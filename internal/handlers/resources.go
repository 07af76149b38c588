package handlers

import (
	"aromasabor/internal/models"
	"aromasabor/internal/schema"
)

// Resource is an entity exposed through the list, new, edit and delete pages.
type Resource struct {
	Entity *schema.Entity
	// Singular and Plural are display names.
	Singular string
	Plural   string
	// Columns are the fields shown on the list page, in order.
	Columns []string
}

// ListPath is the URL of the list page, for example /products.
func (r *Resource) ListPath() string { return "/" + r.Entity.Plural }

// Path builds a URL below the singular entity name, for example
// /product/edit/:id.
func (r *Resource) Path(suffix string) string { return "/" + r.Entity.Name + "/" + suffix }

// DefaultResources lists the entities managed from the back-office.
func DefaultResources() []*Resource {
	return []*Resource{
		{
			Entity:   models.ProductEntity,
			Singular: "Product",
			Plural:   "Products",
			Columns:  []string{models.ProductName, models.ProductSKU, models.ProductPrice, models.ProductStock, models.ProductCategoryID},
		},
		{
			Entity:   models.CategoryEntity,
			Singular: "Category",
			Plural:   "Categories",
			Columns:  []string{models.CategoryName, models.CategoryDescription},
		},
		{
			Entity:   models.CustomerEntity,
			Singular: "Customer",
			Plural:   "Customers",
			Columns:  []string{models.CustomerFirstName, models.CustomerLastName, models.CustomerEmail, models.CustomerCity},
		},
		{
			Entity:   models.CouponEntity,
			Singular: "Coupon",
			Plural:   "Coupons",
			Columns:  []string{models.CouponCode, models.CouponDiscountType, models.CouponValue, models.CouponExpirationDate, models.CouponIsActive},
		},
		{
			Entity:   models.AnnouncementEntity,
			Singular: "Announcement",
			Plural:   "Announcements",
			Columns:  []string{models.AnnouncementTitle, models.AnnouncementPrice, models.AnnouncementCategoryID},
		},
	}
}

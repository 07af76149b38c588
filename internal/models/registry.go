package models

import "aromasabor/internal/schema"

// NewRegistry returns every persisted entity, referenced tables first.
func NewRegistry() *schema.Registry {
	return schema.MustRegistry(
		CategoryEntity,
		ProductEntity,
		CustomerEntity,
		CouponEntity,
		UserEntity,
		AnnouncementEntity,
	)
}

// All returns a zero value of every persisted model, for migrations.
func All() []any {
	return []any{
		&Category{},
		&Product{},
		&Customer{},
		&Coupon{},
		&User{},
		&Announcement{},
	}
}

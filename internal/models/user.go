package models

import (
	"time"

	"aromasabor/internal/schema"
)

// User field names. Password and PasswordConfirm are form-only: the model
// keeps nothing but the bcrypt hash.
const (
	UserUsername        = "username"
	UserEmail           = "email"
	UserPassword        = "password"
	UserPasswordConfirm = "password_confirm"
)

// User, an account allowed into the back-office.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:80;not null;uniqueIndex:uq_users_username"`
	Email        string    `json:"email" gorm:"size:120;not null;uniqueIndex:uq_users_email"`
	PasswordHash string    `json:"password_hash" gorm:"size:256;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserEntity is the registration form and the users table.
var UserEntity = &schema.Entity{
	Name:   "user",
	Plural: "users",
	Table:  "users",
	Fields: []schema.Field{
		{Name: UserUsername, Label: "Username", Kind: schema.Text, Required: true, Unique: true, MinLen: 3, MaxLen: 80},
		{Name: UserEmail, Label: "Email", Kind: schema.Text, Required: true, Unique: true, MaxLen: 120, Format: schema.FormatEmail},
		// bcrypt ignores everything past 72 bytes.
		{Name: UserPassword, Label: "Password", Kind: schema.Secret, Required: true, MinLen: 8, MaxLen: 72},
		{Name: UserPasswordConfirm, Label: "Repeat password", Kind: schema.Secret, Required: true},
	},
	Rules: []schema.Rule{passwordsMatch},
	New:   func() schema.Model { return &User{} },
}

// LoginEntity is the login form. It has no table.
var LoginEntity = &schema.Entity{
	Name: "login",
	Fields: []schema.Field{
		{Name: UserUsername, Label: "Username", Kind: schema.Text, Required: true, Verbatim: true},
		{Name: UserPassword, Label: "Password", Kind: schema.Secret, Required: true},
	},
}

func passwordsMatch(v schema.Values) (string, string) {
	if v.String(UserPassword) != v.String(UserPasswordConfirm) {
		return UserPasswordConfirm, "Passwords must match."
	}
	return "", ""
}

func (User) TableName() string { return "users" }

func (u *User) PrimaryKey() int64      { return u.ID }
func (u *User) SetPrimaryKey(id int64) { u.ID = id }
func (u *User) Label() string          { return u.Username }

func (u *User) Stamp(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
}

func (u *User) Apply(v schema.Values) {
	u.Username = v.String(UserUsername)
	u.Email = v.String(UserEmail)
}

func (u *User) Values() schema.Values {
	return schema.Values{
		UserUsername: u.Username,
		UserEmail:    u.Email,
	}
}

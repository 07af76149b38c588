package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Values is a validated value set keyed by field name. Each present value has
// the Go type matching its field kind:
//
//	Text, Secret, Enum  string
//	Integer, ForeignKey int64
//	Decimal             decimal.Decimal
//	Boolean             bool
//	Date                time.Time
//
// Optional fields left blank are absent.
type Values map[string]any

// Has reports whether a value is present for name.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// String returns the text value of name, or "" when absent.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Int returns the integer value of name, or 0 when absent.
func (v Values) Int(name string) int64 {
	n, _ := v[name].(int64)
	return n
}

// OptionalInt returns nil when name is absent.
func (v Values) OptionalInt(name string) *int64 {
	n, ok := v[name].(int64)
	if !ok {
		return nil
	}
	return &n
}

// Decimal returns the decimal value of name, or zero when absent.
func (v Values) Decimal(name string) decimal.Decimal {
	d, _ := v[name].(decimal.Decimal)
	return d
}

// Bool returns the boolean value of name, false when absent.
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Date returns nil when name is absent.
func (v Values) Date(name string) *time.Time {
	t, ok := v[name].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

// Set stores val under name, dropping it when val is a nil pointer.
func (v Values) Set(name string, val any) {
	switch x := val.(type) {
	case *int64:
		if x == nil {
			delete(v, name)
			return
		}
		v[name] = *x
	case *time.Time:
		if x == nil {
			delete(v, name)
			return
		}
		v[name] = *x
	default:
		v[name] = val
	}
}

// Equal compares two stored values the way a unique index would.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case int:
		return Equal(int64(x), b)
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case int:
			return x == int64(y)
		}
		return false
	}
	return a == b
}

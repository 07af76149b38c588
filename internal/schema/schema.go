// Package schema describes the record types of the back-office: their fields,
// the constraints on each field and how entities reference each other.
//
// The same Entity value drives form validation and persistence, so both sides
// agree on what a valid record is.
package schema

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the semantic type of a field.
type Kind int

const (
	Text Kind = iota
	Secret
	Integer
	Decimal
	Boolean
	Date
	Enum
	ForeignKey
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Secret:
		return "secret"
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Enum:
		return "enum"
	case ForeignKey:
		return "foreign-key"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DateLayout is the only accepted input format for Date fields.
const DateLayout = "2006-01-02"

// Format names an extra syntactic check applied to Text fields.
type Format string

const (
	FormatNone  Format = ""
	FormatEmail Format = "email"
)

// Choice is one allowed value of an Enum field.
type Choice struct {
	Value string
	Label string
}

// Field declares one column of an entity.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	Unique   bool

	// MinLen and MaxLen bound Text and Secret fields, counted in runes.
	// Zero means unbounded.
	MinLen int
	MaxLen int

	// Min and Max bound Integer and Decimal fields.
	Min *decimal.Decimal
	Max *decimal.Decimal

	// Scale is the maximum number of fractional digits of a Decimal field.
	Scale int32

	Format  Format
	Choices []Choice

	// References is the table of the entity a ForeignKey field points at.
	References string

	// Multiline renders a Text field as a textarea.
	Multiline bool

	// Verbatim keeps surrounding whitespace of a Text field. Secret fields
	// are always verbatim.
	Verbatim bool

	// Default is the raw value shown on an empty "new" form.
	Default string
}

// HasChoice reports whether v is one of the field's enum values.
func (f Field) HasChoice(v string) bool {
	for _, c := range f.Choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

// Bound returns a pointer to d, for use in Field.Min and Field.Max.
func Bound(d int64) *decimal.Decimal {
	v := decimal.NewFromInt(d)
	return &v
}

// BoundString is Bound for a decimal literal such as "9999999999.99".
func BoundString(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// MaxMoney is the largest value a numeric(12,2) column holds.
var MaxMoney = BoundString("9999999999.99")

// Rule is a cross-field check run after every field coerced cleanly.
// It returns the failing field name and message, or empty strings.
type Rule func(v Values) (field, message string)

// Model is implemented by every persisted record type. Apply and Values are
// the explicit mapping between validated values and struct members.
type Model interface {
	TableName() string
	PrimaryKey() int64
	SetPrimaryKey(id int64)
	Apply(v Values)
	Values() Values
}

// Stamped is implemented by models carrying a creation timestamp.
type Stamped interface {
	Stamp(now time.Time)
}

// Labeled is implemented by models that can be shown in a select box or in
// place of a foreign key.
type Labeled interface {
	Label() string
}

// Entity is the declarative description of one record type.
type Entity struct {
	Name   string
	Plural string
	Table  string
	Fields []Field
	Rules  []Rule
	New    func() Model
}

// Field returns the field with the given name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// UniqueFields returns the fields that must be unique across all rows.
func (e *Entity) UniqueFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Unique {
			out = append(out, f)
		}
	}
	return out
}

// ForeignKeys returns the fields that reference another entity.
func (e *Entity) ForeignKeys() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Kind == ForeignKey {
			out = append(out, f)
		}
	}
	return out
}

// Dependent is a required foreign key held by one entity towards another.
type Dependent struct {
	Entity *Entity
	Field  Field
}

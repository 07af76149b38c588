// Package forms turns raw submitted form values into a typed schema.Values set
// or a complete list of field errors.
package forms

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"aromasabor/internal/schema"
)

// Code classifies a field error.
type Code string

const (
	CodeRequired      Code = "required"
	CodeInvalidFormat Code = "invalid format"
	CodeOutOfRange    Code = "out of range"
	CodeInvalid       Code = "invalid"
	CodeConflict      Code = "conflict"
)

// FieldError is the error reported for one field.
type FieldError struct {
	Code    Code
	Message string
}

// FieldErrors maps field names to their error. It is the ValidationError of
// the back-office: recoverable, shown next to each input.
type FieldErrors map[string]FieldError

func (fe FieldErrors) Error() string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, fe[name].Code))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records an error for field unless one is already present.
func (fe FieldErrors) Add(field string, code Code, message string) {
	if _, ok := fe[field]; ok {
		return
	}
	fe[field] = FieldError{Code: code, Message: message}
}

// Message returns the message for field, or "".
func (fe FieldErrors) Message(field string) string {
	return fe[field].Message
}

// maxDecimalLen bounds the text of a decimal input before it is parsed.
const maxDecimalLen = 32

var (
	formats = validator.New()

	truthy = map[string]bool{"on": true, "true": true, "1": true, "yes": true, "y": true}
	falsy  = map[string]bool{"off": true, "false": true, "0": true, "no": true, "n": true}
)

// Validate checks raw against e. Fields are visited in declaration order and
// every failing field is reported. Cross-field rules only run when all fields
// coerced cleanly. On success the returned FieldErrors is nil.
func Validate(e *schema.Entity, raw url.Values) (schema.Values, FieldErrors) {
	out := make(schema.Values, len(e.Fields))
	errs := FieldErrors{}

	for _, f := range e.Fields {
		in := raw.Get(f.Name)
		if f.Kind != schema.Secret && !f.Verbatim {
			in = strings.TrimSpace(in)
		}

		if in == "" {
			switch {
			case f.Kind == schema.Boolean:
				out[f.Name] = false
			case f.Required:
				errs.Add(f.Name, CodeRequired, "This field is required.")
			}
			continue
		}

		val, ferr := coerce(f, in)
		if ferr != nil {
			errs[f.Name] = *ferr
			continue
		}
		out[f.Name] = val
	}

	if len(errs) == 0 {
		for _, rule := range e.Rules {
			if field, msg := rule(out); field != "" {
				code := CodeInvalid
				if f, ok := e.Field(field); ok && (f.Kind == schema.Integer || f.Kind == schema.Decimal) {
					code = CodeOutOfRange
				}
				errs.Add(field, code, msg)
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func coerce(f schema.Field, in string) (any, *FieldError) {
	switch f.Kind {
	case schema.Text, schema.Secret:
		if err := checkLength(f, in); err != nil {
			return nil, err
		}
		if f.Format == schema.FormatEmail {
			if formats.Var(in, "email") != nil {
				return nil, invalid("Enter a valid email address.")
			}
		}
		return in, nil

	case schema.Enum:
		if !f.HasChoice(in) {
			return nil, invalid("Not a valid choice.")
		}
		return in, nil

	case schema.Integer:
		n, err := strconv.ParseInt(in, 10, 64)
		if err != nil {
			return nil, invalid("Enter a whole number.")
		}
		if err := checkRange(f, decimal.NewFromInt(n)); err != nil {
			return nil, err
		}
		return n, nil

	case schema.ForeignKey:
		n, err := strconv.ParseInt(in, 10, 64)
		if err != nil || n <= 0 {
			return nil, invalid("Not a valid choice.")
		}
		return n, nil

	case schema.Decimal:
		// No exponent notation and no long inputs: rescaling is linear in
		// the implied number of digits.
		if len(in) > maxDecimalLen || strings.ContainsAny(in, "eE") {
			return nil, invalid("Enter a number.")
		}
		d, err := decimal.NewFromString(in)
		if err != nil {
			return nil, invalid("Enter a number.")
		}
		if f.Scale > 0 && d.Exponent() < -f.Scale {
			// Reject rather than round, the stored value must equal the input.
			if !d.Equal(d.Truncate(f.Scale)) {
				return nil, invalid(fmt.Sprintf("Use at most %d decimal places.", f.Scale))
			}
		}
		if err := checkRange(f, d); err != nil {
			return nil, err
		}
		return d, nil

	case schema.Boolean:
		s := strings.ToLower(in)
		switch {
		case truthy[s]:
			return true, nil
		case falsy[s]:
			return false, nil
		}
		return nil, invalid("Not a valid yes/no value.")

	case schema.Date:
		t, err := time.Parse(schema.DateLayout, in)
		if err != nil {
			return nil, invalid("Use the format YYYY-MM-DD.")
		}
		return t, nil
	}
	return nil, invalid("Unsupported field.")
}

func invalid(msg string) *FieldError {
	return &FieldError{Code: CodeInvalidFormat, Message: msg}
}

func checkLength(f schema.Field, in string) *FieldError {
	n := utf8.RuneCountInString(in)
	switch {
	case f.MinLen > 0 && f.MaxLen > 0 && (n < f.MinLen || n > f.MaxLen):
		return &FieldError{Code: CodeOutOfRange, Message: fmt.Sprintf("Must be between %d and %d characters long.", f.MinLen, f.MaxLen)}
	case f.MinLen > 0 && n < f.MinLen:
		return &FieldError{Code: CodeOutOfRange, Message: fmt.Sprintf("Must be at least %d characters long.", f.MinLen)}
	case f.MaxLen > 0 && n > f.MaxLen:
		return &FieldError{Code: CodeOutOfRange, Message: fmt.Sprintf("Must be at most %d characters long.", f.MaxLen)}
	}
	return nil
}

func checkRange(f schema.Field, d decimal.Decimal) *FieldError {
	switch {
	case f.Min != nil && f.Max != nil && (d.LessThan(*f.Min) || d.GreaterThan(*f.Max)):
		return &FieldError{Code: CodeOutOfRange, Message: fmt.Sprintf("Must be between %s and %s.", f.Min, f.Max)}
	case f.Min != nil && d.LessThan(*f.Min):
		return &FieldError{Code: CodeOutOfRange, Message: fmt.Sprintf("Must be at least %s.", f.Min)}
	case f.Max != nil && d.GreaterThan(*f.Max):
		return &FieldError{Code: CodeOutOfRange, Message: fmt.Sprintf("Must be at most %s.", f.Max)}
	}
	return nil
}

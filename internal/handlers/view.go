package handlers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aromasabor/internal/forms"
	"aromasabor/internal/schema"
)

// fieldView is one form input as the templates see it.
type fieldView struct {
	Name     string
	Label    string
	Input    string
	Value    string
	Error    string
	Step     string
	Required bool
	Checked  bool
	MaxLen   int
	Options  []optionView
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type rowView struct {
	ID    int64
	Cells []string
}

func inputType(f schema.Field) string {
	switch f.Kind {
	case schema.Secret:
		return "password"
	case schema.Integer, schema.Decimal:
		return "number"
	case schema.Boolean:
		return "checkbox"
	case schema.Date:
		return "date"
	case schema.Enum, schema.ForeignKey:
		return "select"
	}
	switch {
	case f.Multiline:
		return "textarea"
	case f.Format == schema.FormatEmail:
		return "email"
	}
	return "text"
}

// buildFields prepares the inputs of e filled with raw. Secrets are never
// echoed back.
func (h *Handler) buildFields(ctx context.Context, e *schema.Entity, raw url.Values, errs forms.FieldErrors) ([]fieldView, error) {
	out := make([]fieldView, 0, len(e.Fields))
	for _, f := range e.Fields {
		v := fieldView{
			Name:     f.Name,
			Label:    f.Label,
			Input:    inputType(f),
			Value:    raw.Get(f.Name),
			Error:    errs.Message(f.Name),
			Required: f.Required,
			MaxLen:   f.MaxLen,
		}
		switch f.Kind {
		case schema.Secret:
			v.Value = ""
		case schema.Decimal:
			v.Step = "any"
			if f.Scale > 0 {
				v.Step = decimal.New(1, -f.Scale).String()
			}
		case schema.Integer:
			v.Step = "1"
		case schema.Boolean:
			v.Checked = isChecked(v.Value)
		case schema.Enum:
			for _, c := range f.Choices {
				v.Options = append(v.Options, optionView{Value: c.Value, Label: c.Label, Selected: c.Value == v.Value})
			}
		case schema.ForeignKey:
			opts, err := h.referenceOptions(ctx, f, v.Value)
			if err != nil {
				return nil, err
			}
			v.Options = opts
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) referenceOptions(ctx context.Context, f schema.Field, selected string) ([]optionView, error) {
	target, ok := h.gateway.Registry().Lookup(f.References)
	if !ok {
		return nil, nil
	}
	rows, err := h.gateway.List(ctx, target)
	if err != nil {
		return nil, err
	}
	opts := make([]optionView, 0, len(rows))
	for _, m := range rows {
		id := strconv.FormatInt(m.PrimaryKey(), 10)
		label := id
		if l, ok := m.(schema.Labeled); ok {
			label = l.Label()
		}
		opts = append(opts, optionView{Value: id, Label: label, Selected: id == selected})
	}
	return opts, nil
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes", "y":
		return true
	}
	return false
}

// defaultForm holds the declared defaults of an empty "new" form.
func defaultForm(e *schema.Entity) url.Values {
	out := url.Values{}
	for _, f := range e.Fields {
		if f.Default != "" {
			out.Set(f.Name, f.Default)
		}
	}
	return out
}

// storedForm turns stored values back into form input strings.
func storedForm(e *schema.Entity, values schema.Values) url.Values {
	out := url.Values{}
	for _, f := range e.Fields {
		if v, ok := values[f.Name]; ok {
			out.Set(f.Name, inputValue(f, v))
		}
	}
	return out
}

func inputValue(f schema.Field, v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case decimal.Decimal:
		if f.Scale > 0 {
			return x.StringFixed(f.Scale)
		}
		return x.String()
	case bool:
		if x {
			return "on"
		}
		return ""
	case time.Time:
		return x.Format(schema.DateLayout)
	}
	return ""
}

// cellValue formats a stored value for the list page. labels maps foreign
// key fields to the labels of the referenced rows.
func cellValue(f schema.Field, v any, labels map[string]map[int64]string) string {
	if v == nil {
		return ""
	}
	switch f.Kind {
	case schema.ForeignKey:
		id, _ := v.(int64)
		if l, ok := labels[f.Name][id]; ok {
			return l
		}
		return "#" + strconv.FormatInt(id, 10)
	case schema.Boolean:
		if b, _ := v.(bool); b {
			return "Yes"
		}
		return "No"
	case schema.Enum:
		s, _ := v.(string)
		for _, c := range f.Choices {
			if c.Value == s {
				return c.Label
			}
		}
		return s
	}
	return inputValue(f, v)
}

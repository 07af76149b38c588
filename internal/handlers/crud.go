package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"aromasabor/internal/forms"
	"aromasabor/internal/models"
	"aromasabor/internal/schema"
	"aromasabor/internal/services"
)

// List shows every record of res. Foreign keys are shown by label, loaded
// with one query per referenced entity.
func (h *Handler) List(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rows, err := h.gateway.List(ctx, res.Entity)
		if err != nil {
			h.fail(c, err)
			return
		}

		var (
			headers []string
			columns []schema.Field
			labels  = map[string]map[int64]string{}
		)
		for _, name := range res.Columns {
			f, ok := res.Entity.Field(name)
			if !ok {
				continue
			}
			headers = append(headers, f.Label)
			columns = append(columns, f)
			if f.Kind != schema.ForeignKey {
				continue
			}
			target, ok := h.gateway.Registry().Lookup(f.References)
			if !ok {
				continue
			}
			l, err := h.gateway.Labels(ctx, target)
			if err != nil {
				h.fail(c, err)
				return
			}
			labels[f.Name] = l
		}

		view := make([]rowView, 0, len(rows))
		for _, m := range rows {
			values := m.Values()
			cells := make([]string, len(columns))
			for i, f := range columns {
				cells[i] = cellValue(f, values[f.Name], labels)
			}
			view = append(view, rowView{ID: m.PrimaryKey(), Cells: cells})
		}

		h.render(c, http.StatusOK, "list.html", gin.H{
			"title":    res.Plural,
			"resource": res,
			"headers":  headers,
			"rows":     view,
		})
	}
}

func (h *Handler) NewForm(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.renderForm(c, http.StatusOK, res, 0, defaultForm(res.Entity), nil)
	}
}

func (h *Handler) Create(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := postForm(c)
		if !ok {
			return
		}
		values, errs := forms.Validate(res.Entity, raw)
		if errs == nil {
			_, err := h.gateway.Create(c.Request.Context(), res.Entity, values)
			if err != nil {
				if errs = persistErrors(err); errs == nil {
					h.fail(c, err)
					return
				}
			}
		}
		if errs != nil {
			h.renderForm(c, formStatus(errs), res, 0, raw, errs)
			return
		}
		h.sessions.redirect(c, res.ListPath(), FlashSuccess, res.Singular+" created successfully.")
	}
}

func (h *Handler) EditForm(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			h.NotFound(c)
			return
		}
		m, err := h.gateway.Get(c.Request.Context(), res.Entity, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.renderForm(c, http.StatusOK, res, id, storedForm(res.Entity, m.Values()), nil)
	}
}

func (h *Handler) Update(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			h.NotFound(c)
			return
		}
		raw, ok := postForm(c)
		if !ok {
			return
		}
		values, errs := forms.Validate(res.Entity, raw)
		if errs == nil {
			err := h.gateway.Update(c.Request.Context(), res.Entity, id, values)
			if err != nil {
				if errs = persistErrors(err); errs == nil {
					h.fail(c, err)
					return
				}
			}
		}
		if errs != nil {
			h.renderForm(c, formStatus(errs), res, id, raw, errs)
			return
		}
		h.sessions.redirect(c, res.ListPath(), FlashSuccess, res.Singular+" updated successfully.")
	}
}

func (h *Handler) Delete(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			h.NotFound(c)
			return
		}
		err := h.gateway.Delete(c.Request.Context(), res.Entity, id)
		var dep *services.DependencyError
		switch {
		case err == nil:
			h.sessions.redirect(c, res.ListPath(), FlashSuccess, res.Singular+" deleted successfully.")
		case errors.As(err, &dep):
			h.sessions.redirect(c, res.ListPath(), FlashDanger,
				fmt.Sprintf("This %s cannot be deleted while %s still reference it.", res.Entity.Name, dep.Dependent))
		default:
			h.fail(c, err)
		}
	}
}

func (h *Handler) renderForm(c *gin.Context, status int, res *Resource, id int64, raw url.Values, errs forms.FieldErrors) {
	fields, err := h.buildFields(c.Request.Context(), res.Entity, raw, errs)
	if err != nil {
		h.internalError(c, err)
		return
	}
	heading, action := "New "+res.Entity.Name, res.Path("new")
	if id != 0 {
		heading, action = "Edit "+res.Entity.Name, res.Path("edit/"+strconv.FormatInt(id, 10))
	}
	data := gin.H{
		"title":   heading,
		"heading": heading,
		"action":  action,
		"cancel":  res.ListPath(),
		"fields":  fields,
	}
	if errs != nil {
		data["error"] = "Please correct the errors below."
	}
	h.render(c, status, "form.html", data)
}

// persistErrors turns gateway rejections that belong to a single field into
// form errors. It returns nil for anything else.
func persistErrors(err error) forms.FieldErrors {
	var (
		ce *services.ConflictError
		re *services.ReferenceError
	)
	switch {
	case errors.As(err, &ce):
		return forms.FieldErrors{ce.Field: {Code: forms.CodeConflict, Message: "This value is already in use."}}
	case errors.As(err, &re):
		return forms.FieldErrors{re.Field: {Code: forms.CodeInvalid, Message: "The selected record does not exist."}}
	case errors.Is(err, services.ErrPasswordTooLong):
		return forms.FieldErrors{models.UserPassword: {Code: forms.CodeOutOfRange, Message: "Use at most 72 bytes."}}
	}
	return nil
}

func formStatus(errs forms.FieldErrors) int {
	for _, fe := range errs {
		if fe.Code == forms.CodeConflict {
			return http.StatusConflict
		}
	}
	return http.StatusBadRequest
}

func postForm(c *gin.Context) (url.Values, bool) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "malformed form")
		return nil, false
	}
	return c.Request.PostForm, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"aromasabor/internal/forms"
	"aromasabor/internal/models"
	"aromasabor/internal/services"
)

const invalidLogin = "Invalid username or password."

func (h *Handler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, "", nil, "")
}

// HandleLogin gives the same answer for an unknown user and a wrong
// password. The username is matched exactly as typed.
func (h *Handler) HandleLogin(c *gin.Context) {
	raw, ok := postForm(c)
	if !ok {
		return
	}
	values, errs := forms.Validate(models.LoginEntity, raw)
	username := raw.Get(models.UserUsername)
	if errs != nil {
		h.renderLogin(c, http.StatusBadRequest, username, errs, "")
		return
	}
	username = values.String(models.UserUsername)

	id, err := h.auth.VerifyCredentials(c.Request.Context(), username, values.String(models.UserPassword))
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.security.LogSecurityEvent(services.EventLoginFailure, username, c.ClientIP())
		h.renderLogin(c, http.StatusUnauthorized, username, nil, invalidLogin)
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	if err := h.sessions.Issue(c, id); err != nil {
		h.internalError(c, err)
		return
	}
	h.security.LogSecurityEvent(services.EventLoginSuccess, username, c.ClientIP())
	h.sessions.redirect(c, "/", FlashSuccess, "Welcome back, "+username+"!")
}

func (h *Handler) renderLogin(c *gin.Context, status int, username string, errs forms.FieldErrors, message string) {
	h.render(c, status, "login.html", gin.H{
		"title":    "Log in",
		"username": username,
		"errors":   errs,
		"error":    message,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	username := ""
	if id, err := h.sessions.UserID(c); err == nil {
		if u, err := h.auth.User(c.Request.Context(), id); err == nil {
			username = u.Username
		}
	}
	h.sessions.Clear(c)
	h.security.LogSecurityEvent(services.EventLogout, username, c.ClientIP())
	h.sessions.redirect(c, "/login", FlashSuccess, "You have been logged out.")
}

func (h *Handler) RegisterPage(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, nil, nil)
}

// HandleRegister creates an account. Taken usernames and emails are reported
// on their field.
func (h *Handler) HandleRegister(c *gin.Context) {
	raw, ok := postForm(c)
	if !ok {
		return
	}
	values, errs := forms.Validate(models.UserEntity, raw)
	if errs == nil {
		_, err := h.auth.Register(c.Request.Context(), values)
		if err != nil {
			if errs = persistErrors(err); errs == nil {
				h.internalError(c, err)
				return
			}
		}
	}
	if errs != nil {
		h.renderRegister(c, formStatus(errs), raw, errs)
		return
	}
	username := values.String(models.UserUsername)
	h.security.LogSecurityEvent(services.EventRegister, username, c.ClientIP())
	h.sessions.redirect(c, "/login", FlashSuccess, "Account created. You can log in now.")
}

func (h *Handler) renderRegister(c *gin.Context, status int, raw url.Values, errs forms.FieldErrors) {
	fields, err := h.buildFields(c.Request.Context(), models.UserEntity, raw, errs)
	if err != nil {
		h.internalError(c, err)
		return
	}
	data := gin.H{
		"title":  "Create account",
		"fields": fields,
	}
	if errs != nil {
		data["error"] = "Please correct the errors below."
	}
	h.render(c, status, "register.html", data)
}

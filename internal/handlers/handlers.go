package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aromasabor/internal/logging"
	"aromasabor/internal/models"
	"aromasabor/internal/services"
)

const userKey = "user"

// Handler serves the back-office pages.
type Handler struct {
	gateway           *services.Gateway
	auth              *services.AuthService
	sessions          *SessionManager
	security          *services.SecurityLogger
	resources         []*Resource
	allowRegistration bool
	log               *logrus.Entry
}

// Options toggles optional pages.
type Options struct {
	AllowRegistration bool
}

func NewHandler(
	gateway *services.Gateway,
	auth *services.AuthService,
	sessions *SessionManager,
	security *services.SecurityLogger,
	log *logrus.Logger,
	opts Options,
) *Handler {
	return &Handler{
		gateway:           gateway,
		auth:              auth,
		sessions:          sessions,
		security:          security,
		resources:         DefaultResources(),
		allowRegistration: opts.AllowRegistration,
		log:               log.WithField("component", "http"),
	}
}

// Routes registers every page on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.HandleLogin)
	r.GET("/logout", h.Logout)
	if h.allowRegistration {
		r.GET("/register", h.RegisterPage)
		r.POST("/register", h.HandleRegister)
	}
	r.GET("/healthz", h.Healthz)

	admin := r.Group("/")
	admin.Use(h.AuthMiddleware())
	{
		admin.GET("/", h.Dashboard)
		for _, res := range h.resources {
			admin.GET(res.ListPath(), h.List(res))
			admin.GET(res.Path("new"), h.NewForm(res))
			admin.POST(res.Path("new"), h.Create(res))
			admin.GET(res.Path("edit/:id"), h.EditForm(res))
			admin.POST(res.Path("edit/:id"), h.Update(res))
			admin.POST(res.Path("delete/:id"), h.Delete(res))
		}
	}

	r.NoRoute(h.NotFound)
}

// AuthMiddleware lets a request through only with a valid session cookie of
// an existing user. Anything else goes back to the login page.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.sessions.UserID(c)
		var u *models.User
		if err == nil {
			u, err = h.auth.User(c.Request.Context(), id)
		}
		if err != nil && !errors.Is(err, errBadSession) && !errors.Is(err, services.ErrNotFound) {
			h.internalError(c, err)
			c.Abort()
			return
		}
		if err != nil {
			if !errors.Is(err, errBadSession) {
				h.sessions.Clear(c)
			}
			h.security.LogSecurityEvent(services.EventAccessDenied, "", c.ClientIP())
			h.sessions.redirect(c, "/login", FlashWarning, "Please log in to access this page.")
			c.Abort()
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

type dashboardCard struct {
	Title string
	Path  string
	Count int64
}

// Dashboard shows how many records each entity holds.
func (h *Handler) Dashboard(c *gin.Context) {
	cards := make([]dashboardCard, 0, len(h.resources))
	for _, res := range h.resources {
		n, err := h.gateway.Count(c.Request.Context(), res.Entity)
		if err != nil {
			h.internalError(c, err)
			return
		}
		cards = append(cards, dashboardCard{Title: res.Plural, Path: res.ListPath(), Count: n})
	}
	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"title": "Dashboard",
		"cards": cards,
	})
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.gateway.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "error.html", gin.H{
		"title":   "Page not found",
		"message": "The page or record you asked for does not exist.",
	})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.log.WithError(err).WithField("request_id", c.GetString(logging.RequestIDKey)).Error("request failed")
	_ = c.Error(err)
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"title":   "Something went wrong",
		"message": "The request could not be completed. Please try again.",
	})
}

// fail maps a gateway error that has no form to report on.
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		h.NotFound(c)
		return
	}
	h.internalError(c, err)
}

// render adds the layout data shared by every page.
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	data["flashes"] = h.sessions.popFlashes(c)
	if u, ok := currentUser(c); ok {
		data["user"] = u.Username
		data["nav"] = h.resources
	}
	data["allowRegistration"] = h.allowRegistration
	c.HTML(status, page, data)
}

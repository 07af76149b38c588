package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "flash"

// Flash categories, matching the alert styles of the layout.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// setFlash stores f for the next request. The cookie carries the same
// Secure flag as the session cookie.
func (s *SessionManager) setFlash(c *gin.Context, f Flash) {
	raw, err := json.Marshal([]Flash{f})
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(raw), 60, "/", "", s.secure, true)
}

// popFlashes returns the pending messages and clears them. A malformed
// cookie yields no messages.
func (s *SessionManager) popFlashes(c *gin.Context) []Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", s.secure, true)

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var out []Flash
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// redirect sends a 303 to location carrying a flash message.
func (s *SessionManager) redirect(c *gin.Context, location, category, message string) {
	s.setFlash(c, Flash{Category: category, Message: message})
	c.Redirect(http.StatusSeeOther, location)
}

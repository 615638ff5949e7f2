// Package identity resolves the buyer key that owns a basket: the
// authenticated user name, or an anonymous id kept in a cookie.
package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/auth"
)

const (
	DefaultCookieName = "buyerId"
	DefaultMaxAge     = 30 * 24 * time.Hour
)

type CookieConfig struct {
	Name     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

type Resolver struct {
	cookie CookieConfig
	newID  func() string
}

func NewResolver(cfg CookieConfig) *Resolver {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return &Resolver{cookie: cfg, newID: uuid.NewString}
}

func (r *Resolver) CookieName() string { return r.cookie.Name }

// BuyerID returns the caller's buyer key, or "" when the caller is anonymous
// and has no cookie.
func (r *Resolver) BuyerID(c *gin.Context) string {
	if id, ok := auth.FromContext(c); ok && id.UserName != "" {
		return id.UserName
	}
	v, err := c.Cookie(r.cookie.Name)
	if err != nil {
		return ""
	}
	return v
}

// AnonymousID returns only the cookie value, ignoring any authenticated user.
func (r *Resolver) AnonymousID(c *gin.Context) string {
	v, _ := c.Cookie(r.cookie.Name)
	return v
}

// Mint returns the buyer key to create a basket under: the user name when
// signed in, otherwise a fresh id. It writes nothing to the response.
func (r *Resolver) Mint(c *gin.Context) string {
	if id, ok := auth.FromContext(c); ok && id.UserName != "" {
		return id.UserName
	}
	return r.newID()
}

// Remember writes buyerID to the cookie for anonymous callers. Signed-in
// callers are keyed by user name and get no cookie.
func (r *Resolver) Remember(c *gin.Context, buyerID string) {
	if id, ok := auth.FromContext(c); ok && id.UserName != "" {
		return
	}
	r.set(c, buyerID, int(r.cookie.MaxAge/time.Second))
}

// Forget expires the cookie.
func (r *Resolver) Forget(c *gin.Context) {
	r.set(c, "", -1)
}

func (r *Resolver) set(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(r.cookie.SameSite)
	c.SetCookie(r.cookie.Name, value, maxAge, "/", "", r.cookie.Secure, true)
}

// ParseSameSite maps a config value to http.SameSite; unknown values are Lax.
func ParseSameSite(v string) http.SameSite {
	switch v {
	case "strict", "Strict":
		return http.SameSiteStrictMode
	case "none", "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

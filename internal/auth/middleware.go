package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

const identityKey = "auth.identity"

// Authenticate attaches the bearer token's Identity to the request when one
// is present and valid. Anonymous requests pass through untouched; a bad
// token is rejected.
func Authenticate(ts *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			_ = c.Error(domain.NewUnauthorizedError("malformed authorization header"))
			c.Abort()
			return
		}
		id, err := ts.Parse(raw)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAuth aborts requests that Authenticate did not attach an identity to.
func RequireAuth(c *gin.Context) {
	if _, ok := FromContext(c); !ok {
		_ = c.Error(domain.NewUnauthorizedError("authentication required"))
		c.Abort()
		return
	}
	c.Next()
}

func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

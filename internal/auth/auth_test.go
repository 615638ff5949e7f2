package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

var bob = domain.User{UserName: "bob", Email: "bob@test.com", Roles: []string{domain.RoleMember}}

func TestTokenRoundTrip(t *testing.T) {
	ts := NewTokenService("secret-key", time.Hour, "storefront")

	raw, err := ts.Issue(bob)
	require.NoError(t, err)

	id, err := ts.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "bob", id.UserName)
	assert.Equal(t, "bob@test.com", id.Email)
	assert.True(t, id.HasRole(domain.RoleMember))
	assert.False(t, id.HasRole(domain.RoleAdmin))
}

func TestTokenRejected(t *testing.T) {
	ts := NewTokenService("secret-key", time.Hour, "storefront")

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := NewTokenService("other", time.Hour, "storefront").Issue(bob)
		require.NoError(t, err)
		_, err = ts.Parse(raw)
		assert.True(t, domain.IsUnauthorized(err))
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenService("secret-key", time.Hour, "storefront")
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		raw, err := old.Issue(bob)
		require.NoError(t, err)
		_, err = ts.Parse(raw)
		assert.True(t, domain.IsUnauthorized(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw, err := NewTokenService("secret-key", time.Hour, "elsewhere").Issue(bob)
		require.NoError(t, err)
		_, err = ts.Parse(raw)
		assert.True(t, domain.IsUnauthorized(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ts.Parse("not.a.token")
		assert.True(t, domain.IsUnauthorized(err))
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Pa$$w0rd")
	require.NoError(t, err)
	assert.NotEqual(t, "Pa$$w0rd", hash)

	assert.NoError(t, CheckPassword(hash, "Pa$$w0rd"))
	assert.True(t, domain.IsUnauthorized(CheckPassword(hash, "wrong")))
}

func TestPasswordProblems(t *testing.T) {
	tests := []struct {
		password string
		want     []string
	}{
		{"Pa$$w0rd", nil},
		{"Ab1!", []string{"PasswordTooShort"}},
		{"password", []string{"PasswordRequiresNonAlphanumeric", "PasswordRequiresDigit", "PasswordRequiresUpper"}},
		{"PASSW0RD!", []string{"PasswordRequiresLower"}},
		{"", []string{"PasswordTooShort", "PasswordRequiresNonAlphanumeric", "PasswordRequiresDigit", "PasswordRequiresLower", "PasswordRequiresUpper"}},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			var codes []string
			for _, p := range PasswordProblems(tt.password) {
				codes = append(codes, p.Field)
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestMiddleware(t *testing.T) {
	ts := NewTokenService("secret-key", time.Hour, "")
	token, err := ts.Issue(bob)
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			c.Status(http.StatusUnauthorized)
		}
	})
	r.Use(Authenticate(ts))
	r.GET("/open", func(c *gin.Context) {
		id, _ := FromContext(c)
		c.String(http.StatusOK, id.UserName)
	})
	r.GET("/closed", RequireAuth, func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"anonymous open", "/open", "", http.StatusOK, ""},
		{"authenticated open", "/open", "Bearer " + token, http.StatusOK, "bob"},
		{"anonymous closed", "/closed", "", http.StatusUnauthorized, ""},
		{"authenticated closed", "/closed", "Bearer " + token, http.StatusOK, "ok"},
		{"bad scheme", "/open", "Basic abc", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

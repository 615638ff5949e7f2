// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"storefront/internal/domain"
)

// Claims is the token payload. The user name doubles as the buyer key of the
// user's basket.
type Claims struct {
	UserName string   `json:"userName"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles,omitempty"`
	jwt.StandardClaims
}

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserName string
	Email    string
	Roles    []string
}

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs an HS256 token for u.
func (ts *TokenService) Issue(u domain.User) (string, error) {
	now := ts.now()
	claims := Claims{
		UserName: u.UserName,
		Email:    u.Email,
		Roles:    u.Roles,
		StandardClaims: jwt.StandardClaims{
			Subject:   u.UserName,
			Issuer:    ts.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ts.ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry.
func (ts *TokenService) Parse(raw string) (Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		return Identity{}, domain.NewUnauthorizedError("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, domain.NewUnauthorizedError("invalid token")
	}
	if ts.issuer != "" && !claims.VerifyIssuer(ts.issuer, true) {
		return Identity{}, domain.NewUnauthorizedError("invalid token issuer")
	}
	if claims.UserName == "" {
		return Identity{}, domain.NewUnauthorizedError("token has no user name")
	}
	return Identity{UserName: claims.UserName, Email: claims.Email, Roles: claims.Roles}, nil
}

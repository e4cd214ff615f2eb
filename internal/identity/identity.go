// Package identity turns an opaque bearer credential into a caller identity.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingCredential is returned when no token was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned when the token cannot be verified.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpiredCredential is returned when the token has expired.
	ErrExpiredCredential = errors.New("credential has expired")
)

// Role identifies which side of the marketplace a caller acts for.
type Role string

const (
	RoleUser     Role = "user"
	RolePethouse Role = "pethouse"
	RoleClinic   Role = "clinic"
	RoleDriver   Role = "driver"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePethouse, RoleClinic, RoleDriver:
		return true
	}
	return false
}

// Identity is the resolved caller.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

// Resolver verifies a credential and returns the identity it carries.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Claims matches the token payload issued by the account service: {id, name, role}.
type Claims struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens signed with a shared secret.
type JWTResolver struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTResolver creates a resolver; ttl is used by Issue.
func NewJWTResolver(secret string, ttl time.Duration) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Resolve validates token and returns its identity.
func (r *JWTResolver) Resolve(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingCredential
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredCredential
		}
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return Identity{}, ErrInvalidCredential
	}
	if claims.Role != "" && !claims.Role.Valid() {
		return Identity{}, ErrInvalidCredential
	}

	return Identity{ID: claims.ID, Name: claims.Name, Role: claims.Role}, nil
}

// Issue signs a token for id. Used by the dev CLI and tests.
func (r *JWTResolver) Issue(id Identity) (string, error) {
	now := r.now()
	claims := Claims{
		ID:   id.ID,
		Name: id.Name,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

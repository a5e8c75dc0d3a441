/*
auth.go - Bearer token authentication

PURPOSE:
  Identifies the caller. Employees act on their own attendance; admins
  manage the roster, rates and reports. Identity comes from an HS256 JWT:

    Authorization: Bearer <token>
    claims: {"employee_id": 7, "role": "employee", "jti": "...", "exp": ...}

  Tokens are minted by cmd/token (development) or an upstream identity
  service sharing the secret.

SEE ALSO:
  - server.go: Where the middleware is mounted
  - cmd/token/main.go: Token minting CLI
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/warp/attendance-engine/attendance"
)

// Role is the caller's authorization level.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case RoleEmployee:
		return RoleEmployee, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q (use employee or admin)", s)
}

// Claims is the JWT payload.
type Claims struct {
	EmployeeID attendance.EmployeeID `json:"employee_id"`
	Role       Role                  `json:"role"`
	jwt.RegisteredClaims
}

// ErrUnauthenticated is returned for a missing, malformed or expired token.
var ErrUnauthenticated = errors.New("missing or invalid token")

// Authenticator mints and verifies tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator with an HS256 secret.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint issues a signed token for the employee.
func (a *Authenticator) Mint(employeeID attendance.EmployeeID, role Role) (string, error) {
	now := a.now()
	claims := Claims{
		EmployeeID: employeeID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(int64(employeeID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Parse verifies a token and returns its claims.
func (a *Authenticator) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if _, err := ParseRole(string(claims.Role)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type claimsKey struct{}

// AuthRequired rejects requests without a valid bearer token.
func (a *Authenticator) AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeLocalizedError(w, r, http.StatusUnauthorized, "unauthenticated", msgUnauthenticated, nil)
			return
		}

		claims, err := a.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeLocalizedError(w, r, http.StatusUnauthorized, "unauthenticated", msgUnauthenticated, nil)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin callers. Mount after AuthRequired.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok || claims.Role != RoleAdmin {
			writeLocalizedError(w, r, http.StatusForbidden, "forbidden", msgAdminRequired, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFrom returns the authenticated caller, if any.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// roleAdmin is the JWT role claim value for administrative tokens. Vendor
// tokens carry no role.
const roleAdmin = "admin"

// Claims is the portal's JWT payload: the standard registered claims with
// the subject set to the vendor id (or admin email) plus an optional role.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth issues and verifies HS256 tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

// NewAuth creates an Auth with the given signing secret and token lifetime.
func NewAuth(secret string, ttl time.Duration) *Auth {
	return &Auth{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given subject. role is empty for vendors.
func (a *Auth) Issue(subject, role string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", eris.Wrap(err, "server: sign token")
	}
	return signed, nil
}

// Verify parses and validates a signed token.
func (a *Auth) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, eris.Wrap(err, "server: parse token")
	}
	return claims, nil
}

type contextKey string

// claimsKey carries the verified Claims through the request context.
const claimsKey contextKey = "claims"

// claimsFrom retrieves the verified claims set by requireAuth.
func claimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// requireAuth gates a route group on a valid bearer token. When role is
// non-empty the token must also carry that role claim.
func (s *Server) requireAuth(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				respondMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			claims, err := s.auth.Verify(tokenString)
			if err != nil {
				respondMessage(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if role != "" && claims.Role != role {
				respondMessage(w, http.StatusForbidden, "access denied")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

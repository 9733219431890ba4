package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	jwtv4 "github.com/golang-jwt/jwt/v4"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"egress/internal/errs"
)

type claimsKey struct{}

// Claims is the bearer token payload egress issues and verifies.
type Claims struct {
	Subject string `json:"sub"`
}

// AuthMiddleware verifies a bearer JWT on mutating endpoints. v5 is the
// preferred signing/verification path; v4 is kept alongside it to verify
// tokens issued before the v5 migration, per spec.md section 6.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// RequireAuth verifies the Authorization: Bearer <token> header.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			m.respond(w, errs.New(errs.ValidationError, "authorization token required"))
			return
		}

		claims, err := m.verify(token)
		if err != nil {
			m.respond(w, errs.Newf(errs.ValidationError, "invalid or expired token: %v", err))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims stashed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

func (m *AuthMiddleware) verify(token string) (*Claims, error) {
	if claims, err := m.verifyV5(token); err == nil {
		return claims, nil
	}
	return m.verifyV4(token)
}

func (m *AuthMiddleware) verifyV5(token string) (*Claims, error) {
	parsed, err := jwtv5.ParseWithClaims(token, &jwtv5.RegisteredClaims{}, func(t *jwtv5.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errs.New(errs.ValidationError, "token not valid")
		}
		return nil, err
	}
	rc := parsed.Claims.(*jwtv5.RegisteredClaims)
	return &Claims{Subject: rc.Subject}, nil
}

func (m *AuthMiddleware) verifyV4(token string) (*Claims, error) {
	parsed, err := jwtv4.ParseWithClaims(token, &jwtv4.RegisteredClaims{}, func(t *jwtv4.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errs.New(errs.ValidationError, "token not valid")
		}
		return nil, err
	}
	rc := parsed.Claims.(*jwtv4.RegisteredClaims)
	return &Claims{Subject: rc.Subject}, nil
}

func (m *AuthMiddleware) extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func (m *AuthMiddleware) respond(w http.ResponseWriter, egErr *errs.EgressError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": egErr.Message,
		"code":  egErr.Kind,
	})
}

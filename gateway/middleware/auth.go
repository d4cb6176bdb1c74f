package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator validates HS256 bearer tokens on admin routes.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an authenticator around the shared secret. An
// empty secret disables the gate, which is only acceptable on loopback
// development listeners.
func NewAuthenticator(secret string) *Authenticator {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil
	}
	return &Authenticator{secret: []byte(trimmed)}
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return a.secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

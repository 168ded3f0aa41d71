package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/token-security/internal/httputil"
)

type contextKey string

// SubjectIDKey is the context key for the authenticated subject ID.
const SubjectIDKey contextKey = "subject_id"

// Auth creates middleware that validates JWT bearer tokens and stores the
// subject ID in the request context.
func Auth(secret []byte, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			}, jwt.WithIssuer(issuer))
			if err != nil || !token.Valid {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			subjectID, err := uuid.Parse(claims.Subject)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			ctx := context.WithValue(r.Context(), SubjectIDKey, subjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubjectID extracts the authenticated subject ID from the context.
func GetSubjectID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(SubjectIDKey).(uuid.UUID)
	return id, ok
}

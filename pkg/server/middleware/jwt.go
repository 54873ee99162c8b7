package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const subjectKey contextKey = "subject"

// DefaultIssuer is the iss claim of issued tokens.
const DefaultIssuer = "adsync"

// JWTAuthenticator is middleware that validates HS256 bearer tokens
type JWTAuthenticator struct {
	secret []byte
	public map[string]bool
}

// NewJWTAuthenticator creates a new JWT authenticator middleware.
// Requests to publicPaths skip authentication. An empty secret disables it.
func NewJWTAuthenticator(secret string, publicPaths ...string) *JWTAuthenticator {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}
	return &JWTAuthenticator{secret: []byte(secret), public: public}
}

// Enabled reports whether requests must carry a token.
func (j *JWTAuthenticator) Enabled() bool {
	return len(j.secret) > 0
}

// IssueToken signs a token for subject valid for ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("token secret is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    DefaultIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Subject returns the token subject stored on ctx by the middleware.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}

// Middleware returns an HTTP middleware that validates bearer tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !j.Enabled() || j.public[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) == 0 {
			unauthorized(w, "Authorization missing")
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			unauthorized(w, "Malformed authorization header")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return j.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(DefaultIssuer),
			jwt.WithExpirationRequired(),
		)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			unauthorized(w, "Token expired")
			return
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			unauthorized(w, "Invalid signature")
			return
		case err != nil:
			unauthorized(w, "Malformed authorization token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(msg))
}

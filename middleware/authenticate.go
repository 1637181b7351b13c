package middleware

import (
	"errors"
	"net/http"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig describes how bearer tokens are verified.
type AuthConfig struct {
	// Key verifies HMAC signatures. Ignored when KeyFunc is set.
	Key     []byte
	KeyFunc jwt.Keyfunc
	// Methods lists accepted signing algorithms; defaults to HS256.
	Methods  []string
	Issuer   string
	Audience string
}

var errNoKey = errors.New("middleware: no verification key configured")

// Authenticate verifies the bearer token and stores its subject as the principal.
// Requests without a valid token get 401.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodHS256.Alg()}
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(*jwt.Token) (any, error) {
			if len(cfg.Key) == 0 {
				return nil, errNoKey
			}
			return cfg.Key, nil
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goGuard.WithPrincipal(r.Context(), goGuard.Principal{ID: sub})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/inbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const callerKey contextKey = "caller"

// IdentityConfig configures caller resolution
type IdentityConfig struct {
	JWTSecret     string
	Issuer        string
	SessionHeader string
}

// Claims are the bearer token claims read by the API
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity resolves the caller from a bearer token, a session header or the client address.
// A bearer token that fails verification is rejected with 401.
func Identity(cfg IdentityConfig) func(next http.Handler) http.Handler {
	if cfg.SessionHeader == "" {
		cfg.SessionHeader = "X-Session-ID"
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := inbound.Caller{
				Tier:     quota.TierGuest,
				Language: requestLanguage(r),
			}

			if token, ok := bearerToken(r); ok {
				claims, err := parseToken(parser, cfg.JWTSecret, token)
				if err != nil {
					writeError(w, r, caller.Language, apperrors.NewUnauthorizedError("Invalid token").WithCause(err))
					return
				}
				caller.Identity = "user:" + claims.Subject
				caller.Tier = quota.ParseTier(claims.Role)
				if caller.Tier == quota.TierGuest {
					caller.Tier = quota.TierAuthenticated
				}
			} else if session := strings.TrimSpace(r.Header.Get(cfg.SessionHeader)); session != "" {
				caller.Identity = "session:" + session
			} else if host := clientHost(r.RemoteAddr); host != "" {
				caller.Identity = "ip:" + host
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller stores the caller in ctx
func WithCaller(ctx context.Context, caller inbound.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the caller resolved by Identity, or a German-speaking guest
func CallerFromContext(ctx context.Context) inbound.Caller {
	if c, ok := ctx.Value(callerKey).(inbound.Caller); ok {
		return c
	}
	return inbound.Caller{Tier: quota.TierGuest, Language: recipe.LanguageGerman}
}

func parseToken(parser *jwt.Parser, secret, token string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("token verification is not configured")
	}
	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// requestLanguage prefers ?lang= over Accept-Language
func requestLanguage(r *http.Request) recipe.Language {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return recipe.ParseLanguage(lang)
	}
	return recipe.ParseLanguage(r.Header.Get("Accept-Language"))
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, r *http.Request, lang recipe.Language, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	_ = json.NewEncoder(w).Encode(apperrors.ToErrorResponse(err, chimiddleware.GetReqID(r.Context()), string(lang)))
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/stationerr"
)

// PrincipalConfig configures bearer-token principal resolution, adapted
// from the teacher's gateway/middleware/auth.go AuthConfig: an HMAC secret,
// issuer/audience checks and a clock-skew leeway, trimmed to the one claim
// STATION actually needs — a subject naming the caller's model.Principal.
type PrincipalConfig struct {
	HMACSecret  string
	Issuer      string
	Audience    string
	SubjectClaim string // defaults to "sub"
	ClockSkew   time.Duration
}

// principalResolver turns a validated JWT into an authz.Caller by mapping
// its subject claim (hex-encoded, matching model.Principal.String) to a
// registered model.User, the same "transport resolves identity before
// authz.Authorize is ever consulted" split authz.Caller's doc comment
// describes.
type principalResolver struct {
	cfg   PrincipalConfig
	users *repository.UserRepository
}

func newPrincipalResolver(cfg PrincipalConfig, users *repository.UserRepository) *principalResolver {
	if cfg.SubjectClaim == "" {
		cfg.SubjectClaim = "sub"
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &principalResolver{cfg: cfg, users: users}
}

type contextKey string

const callerContextKey contextKey = "httpapi.caller"

// callerFromContext retrieves the authz.Caller a prior middleware resolved.
// Handlers that run without PrincipalMiddleware (tests constructing a
// caller directly) get authz.Caller{Anonymous: true}.
func callerFromContext(ctx context.Context) authz.Caller {
	if c, ok := ctx.Value(callerContextKey).(authz.Caller); ok {
		return c
	}
	return authz.Caller{Anonymous: true}
}

// Middleware authenticates the request's bearer token (when present),
// resolves it to a registered user, and stashes the resulting authz.Caller
// in the request context for handlers to read via callerFromContext. A
// missing token resolves to the anonymous caller; a token that fails
// validation is answered with 401 Unauthorized. Whether anonymous access is
// acceptable is authz.Engine.Authorize's decision, driven by each Resource's
// Allow.
func (p *principalResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := authz.Caller{Anonymous: true}
		if token := extractBearer(r.Header.Get("Authorization")); token != "" {
			principal, err := p.resolvePrincipal(token)
			if err != nil {
				writeError(w, stationerr.Unauthorized("%v", err))
				return
			}
			caller.Principal = principal
			caller.Anonymous = principal.IsAnonymous()
			if user, ok, err := p.users.ByIdentity(principal); err == nil && ok {
				caller.User = user.ID
			}
		}
		ctx := context.WithValue(r.Context(), callerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *principalResolver) resolvePrincipal(tokenString string) (model.Principal, error) {
	if strings.TrimSpace(p.cfg.HMACSecret) == "" {
		return nil, errors.New("bearer authentication is not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(p.cfg.HMACSecret), nil
	}, jwt.WithLeeway(p.cfg.ClockSkew))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	if p.cfg.Issuer != "" {
		if value, _ := claims["iss"].(string); value != p.cfg.Issuer {
			return nil, errors.New("issuer mismatch")
		}
	}
	if p.cfg.Audience != "" && !audienceMatches(claims["aud"], p.cfg.Audience) {
		return nil, errors.New("audience mismatch")
	}
	sub, _ := claims[p.cfg.SubjectClaim].(string)
	if sub == "" {
		return nil, errors.New("missing subject claim")
	}
	principal, err := model.ParsePrincipalHex(sub)
	if err != nil {
		return nil, err
	}
	return principal, nil
}

func audienceMatches(raw any, want string) bool {
	switch v := raw.(type) {
	case string:
		return v == want
	case []interface{}:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}


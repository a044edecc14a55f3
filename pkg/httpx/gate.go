package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// TokenService is what the Gate needs from the token issuer.
type TokenService interface {
	Verify(token string) (*jwtx.Claims, error)
	RefreshIfNearExpiry(c *jwtx.Claims) (string, bool, error)
}

// Decision is the outcome of one pass through the Gate.
type Decision string

const (
	DecisionBypass       Decision = "bypass"
	DecisionAdmit        Decision = "admit"
	DecisionMissingToken Decision = "missing_token"
	DecisionInvalidToken Decision = "invalid_token"
	DecisionNoPermission Decision = "no_permission"
)

type GateConfig struct {
	Tokens TokenService

	// LoginPath is let through without a token. Any path starting with it is
	// bypassed.
	LoginPath string

	// OnDecision, when set, is told about every decision and every refresh.
	OnDecision func(d Decision, refreshed bool)
}

// Gate admits a request only when it carries a valid bearer token whose
// permission list contains the exact request path. Every rejection is a bare
// 401; the cause is only logged.
//
// A token close to expiry on an admitted request is re-issued. The new value is returned to the
// client in the Authorization response header and replaces the request's
// Authorization header for downstream handlers.
func Gate(cfg GateConfig) Middleware {
	decide := cfg.OnDecision
	if decide == nil {
		decide = func(Decision, bool) {}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)
			path := r.URL.Path

			if cfg.LoginPath != "" && strings.HasPrefix(path, cfg.LoginPath) {
				decide(DecisionBypass, false)
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := BearerToken(r)
			if !ok {
				log.Info("gate: missing or malformed authorization header")
				decide(DecisionMissingToken, false)
				writeUnauthorized(w)
				return
			}

			claims, err := cfg.Tokens.Verify(raw)
			if err != nil {
				log.Warn("gate: token rejected", "err", err)
				decide(DecisionInvalidToken, false)
				writeUnauthorized(w)
				return
			}

			if !claims.HasPermission(path) {
				log.Warn("gate: path not permitted", "user_id", claims.ID)
				decide(DecisionNoPermission, false)
				writeUnauthorized(w)
				return
			}

			// Only admitted requests are re-issued a token.
			refreshed := false
			if fresh, ok, err := cfg.Tokens.RefreshIfNearExpiry(claims); err != nil {
				log.Error("gate: token refresh failed", "user_id", claims.ID, "err", err)
			} else if ok {
				value := "Bearer " + fresh
				w.Header().Set("Authorization", value)
				r = r.Clone(ctx)
				r.Header.Set("Authorization", value)
				refreshed = true
			}

			decide(DecisionAdmit, refreshed)
			ctx = WithIdentity(ctx, claims)
			ctx = slogx.With(ctx, "user_id", claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}

// RFC 6750 style rejection. The body never says which check failed.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized")
}

var _ TokenService = (*jwtx.Service)(nil)

// Package guard enforces bearer-token authentication in front of the HTTP
// mux. Paths matching a fixed allow-list of public prefixes pass through
// untouched; everything else requires a token that the configured validator
// accepts. Every rejection produces the same 401 response regardless of
// cause (missing header, malformed header, bad signature, expired token),
// so the response never reveals which check failed.
package guard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator checks a raw bearer token and returns the subject it was
// issued for. *token.Issuer satisfies this.
type TokenValidator interface {
	Validate(raw string) (string, error)
}

// Guard is an http.Handler middleware. Construct with New.
type Guard struct {
	validator TokenValidator
	public    []string
	log       *slog.Logger
}

// New constructs a Guard. publicPrefixes entries are matched as path
// prefixes, except "/" which only matches the root path exactly.
func New(validator TokenValidator, publicPrefixes []string, log *slog.Logger) (*Guard, error) {
	if validator == nil {
		return nil, errors.New("guard: nil token validator")
	}
	if log == nil {
		log = slog.Default()
	}

	public := make([]string, 0, len(publicPrefixes))
	for _, p := range publicPrefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		public = append(public, p)
	}

	return &Guard{validator: validator, public: public, log: log}, nil
}

// Middleware wraps next with the authentication check. CORS preflight
// (OPTIONS) always passes; the browser never attaches credentials to it.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || g.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			g.reject(w, r, "missing bearer token")
			return
		}

		subject, err := g.validator.Validate(raw)
		if err != nil || subject == "" {
			g.reject(w, r, "token rejected")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

func (g *Guard) isPublic(path string) bool {
	for _, p := range g.public {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

type guardError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type guardErrorResponse struct {
	Error guardError `json:"error"`
}

// reject writes the uniform 401. The concrete reason goes to the log only.
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, reason string) {
	g.log.Info("auth.guard.reject",
		"method", r.Method,
		"path", r.URL.Path,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gameswap"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(guardErrorResponse{
		Error: guardError{Code: "unauthorized", Message: "authentication required"},
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

package authapi

import (
	"net/http"
	"regexp"
	"strings"

	"gameswap/cmd/identity"
	"gameswap/cmd/internal/auth/guard"
	"gameswap/cmd/internal/httpapi"
)

// Minimal shape check only: one "@", a dot in the domain, no whitespace.
// Real validation happens by delivering mail, which this server does not do.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && len(s) <= 254 && emailRe.MatchString(s)
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

func toProfileResponse(p identity.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Username:  p.Username,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}

// subject reads the guard-set account id. A missing subject on an /api/
// route means the middleware was not mounted; reject rather than proceed.
func subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := guard.SubjectID(r.Context())
	if !ok || id == "" {
		httpapi.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return id, true
}

package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gameswap/cmd/identity"
	"gameswap/cmd/internal/httpapi"
	"gameswap/cmd/security/token"
)

// Handler wires the account HTTP endpoints to the identity service.
// Routes under /api/ expect the guard middleware to have validated the
// bearer token and stored the subject in the request context.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	accounts *identity.Service
	tokens   *token.Issuer
}

// NewHandler constructs the auth/account Handler.
func NewHandler(log *slog.Logger, cfg Config, accounts *identity.Service, tokens *token.Issuer) (*Handler, error) {
	if accounts == nil {
		return nil, errors.New("auth: nil identity service")
	}
	if tokens == nil {
		return nil, errors.New("auth: nil token issuer")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		tokens:   tokens,
	}, nil
}

// Register wires auth and account routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/api/me", h.handleMe)
	mux.HandleFunc("/api/change_username", h.handleChangeUsername)
	mux.HandleFunc("/api/change_password", h.handleChangePassword)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := httpapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}

	u, err := h.accounts.Register(r.Context(), identity.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			httpapi.WriteError(w, http.StatusConflict, "conflict", "email already registered")
		case identity.IsInvalidInput(err):
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid registration input")
		default:
			h.log.Error("auth.register.fail", "err", err)
			httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	raw, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.log.Error("auth.register.token.fail", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, registerResponse{
		Token: raw,
		User:  toUserResponse(u),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := httpapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	u, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if identity.IsInvalidCredentials(err) {
			// One response for unknown email and wrong password.
			httpapi.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	raw, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.log.Error("auth.login.token.fail", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, loginResponse{
		Token:    raw,
		Username: u.Username,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := subject(w, r)
	if !ok {
		return
	}

	p, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		if identity.IsNotFound(err) {
			// Valid token for an account that no longer exists.
			httpapi.WriteError(w, http.StatusUnauthorized, "not_found", "user not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) handleChangeUsername(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := subject(w, r)
	if !ok {
		return
	}

	var req changeUsernameRequest
	if err := httpapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if err := h.accounts.ChangeUsername(r.Context(), userID, req.Username); err != nil {
		switch {
		case identity.IsInvalidInput(err):
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "username is required")
		case identity.IsNotFound(err):
			httpapi.WriteError(w, http.StatusUnauthorized, "not_found", "user not found")
		default:
			h.log.Error("auth.change_username.fail", "err", err)
			httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := subject(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := httpapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userID, req.Password); err != nil {
		switch {
		case identity.IsInvalidInput(err):
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "password does not meet requirements")
		case identity.IsNotFound(err):
			httpapi.WriteError(w, http.StatusUnauthorized, "not_found", "user not found")
		default:
			h.log.Error("auth.change_password.fail", "err", err)
			httpapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

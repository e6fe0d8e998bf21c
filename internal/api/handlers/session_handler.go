package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nearbuy/nearbuy-gateway/internal/application/services"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/backendapi"
	"github.com/nearbuy/nearbuy-gateway/pkg/config"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
)

// SessionHandler handles session, login, and logout requests
type SessionHandler struct {
	sessions *services.SessionService
	cfg      *config.SessionConfig
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService, cfg *config.SessionConfig) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cfg:      cfg,
	}
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.Snapshot()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user":            state.User,
		"owner":           state.Owner,
		"loading":         state.Loading,
		"authenticated":   state.IsAuthenticated(),
		"can_manage_shop": state.CanManageShop(),
	})
}

// Bootstrap handles POST /api/session/bootstrap: re-resolves both probes.
func (h *SessionHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.Bootstrap(r.Context())
	payload := map[string]interface{}{
		"user":            state.User,
		"owner":           state.Owner,
		"loading":         state.Loading,
		"authenticated":   state.IsAuthenticated(),
		"can_manage_shop": state.CanManageShop(),
	}
	if state.Err != nil {
		// soft error: the session view stays usable with whatever was
		// last resolved
		payload["warning"] = "session could not be fully verified"
	}
	respondWithJSON(w, http.StatusOK, payload)
}

// Refresh handles POST /api/session/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Refresh(r.Context()); err != nil {
		if apperrors.IsRefreshFailed(err) {
			h.respondSessionExpired(w, r)
			return
		}
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// Login handles POST /api/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		respondWithError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	principal, err := h.sessions.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, principal)
}

// OwnerLogin handles POST /api/owner/login
func (h *SessionHandler) OwnerLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		respondWithError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	principal, err := h.sessions.OwnerLogin(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, principal)
}

// Register handles POST /api/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Email == "" || payload.Password == "" || payload.Name == "" {
		respondWithError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	principal, err := h.sessions.Register(r.Context(), backendapi.RegisterRequest{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, principal)
}

// Logout handles POST /api/logout. Always succeeds locally, even when the
// backend call fails or there was no session to begin with.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user":  nil,
		"owner": nil,
	})
}

// respondSessionExpired answers a terminal refresh failure: 401 plus a
// redirect hint, unless the caller is already on a login page.
func (h *SessionHandler) respondSessionExpired(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{"error": "session expired, please log in again"}
	referer := r.Header.Get("Referer")
	if !strings.HasSuffix(referer, h.cfg.LoginPath) && !strings.HasSuffix(referer, h.cfg.OwnerLoginPath) {
		payload["redirect"] = h.cfg.LoginPath
	}
	respondWithJSON(w, http.StatusUnauthorized, payload)
}

// respondWithAppError maps the error taxonomy onto HTTP statuses.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeUnauthenticated:
		respondWithError(w, http.StatusUnauthorized, appErr.Message)
	case apperrors.ErrorTypeRefreshFailed:
		respondWithError(w, http.StatusUnauthorized, appErr.Message)
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeTransient, apperrors.ErrorTypeBackendUnavailable:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

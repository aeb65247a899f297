package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB          *db.DB
	JWTSecret   string
	TokenExpiry time.Duration
}

type loginRequest struct {
	Device     string `json:"device" validate:"max=64"`
	Passphrase string `json:"passphrase" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type changePassphraseRequest struct {
	CurrentPassphrase string `json:"current_passphrase" validate:"required"`
	NewPassphrase     string `json:"new_passphrase" validate:"required,min=8"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := store.GetPassphraseHash(r.Context(), h.DB)
	if errors.Is(err, store.ErrSettingNotFound) {
		jsonError(w, http.StatusServiceUnavailable, "passphrase not set up")
		return
	}
	if err != nil {
		slog.Error("failed to load passphrase hash", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !auth.CheckPassphrase(hash, req.Passphrase) {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	device := req.Device
	if device == "" {
		device = "api"
	}
	token, err := auth.GenerateToken(h.JWTSecret, device, h.TokenExpiry)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("device logged in", "device", device)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token})
}

// ChangePassphrase handles PUT /api/auth/passphrase.
func (h *AuthHandler) ChangePassphrase(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePassphraseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := store.GetPassphraseHash(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.CheckPassphrase(hash, req.CurrentPassphrase) {
		jsonError(w, http.StatusUnauthorized, "current passphrase is incorrect")
		return
	}

	newHash, err := auth.HashPassphrase(req.NewPassphrase)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash passphrase")
		return
	}
	if err := store.SetPassphraseHash(r.Context(), h.DB, newHash); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update passphrase")
		return
	}

	slog.Info("passphrase changed", "device", claims.Subject)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "passphrase updated"})
}

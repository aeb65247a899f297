package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/store"
)

const loginTitle = "Log in"

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, http.StatusOK, "login.html", &PageData{Title: loginTitle})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	passphrase := r.FormValue("passphrase")
	if passphrase == "" {
		s.Templates.Render(w, http.StatusBadRequest, "login.html", &PageData{
			Title: loginTitle,
			Error: "Enter the passphrase.",
		})
		return
	}

	hash, err := store.GetPassphraseHash(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to load passphrase hash", "error", err)
		s.Templates.Render(w, http.StatusInternalServerError, "login.html", &PageData{
			Title: loginTitle,
			Error: "Login is unavailable. Run zaloga init first.",
		})
		return
	}

	if !auth.CheckPassphrase(hash, passphrase) {
		slog.Warn("web login failed", "remote", r.RemoteAddr)
		s.Templates.Render(w, http.StatusUnauthorized, "login.html", &PageData{
			Title: loginTitle,
			Error: "Wrong passphrase.",
		})
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, "web", s.TokenExpiry)
	if err != nil {
		s.Templates.Render(w, http.StatusInternalServerError, "login.html", &PageData{
			Title: loginTitle,
			Error: "Login failed.",
		})
		return
	}

	maxAge := int(s.TokenExpiry.Seconds())
	if maxAge <= 0 {
		maxAge = int(auth.TokenExpiry.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"phishnet/config"
	"phishnet/core/auth"
	"phishnet/core/utils"
)

type AuthHandler struct {
	cfg      *config.AppConfig
	accounts *auth.AccountsService
	sessions *auth.SessionManager
	logger   *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, accounts *auth.AccountsService, sessions *auth.SessionManager, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, accounts: accounts, sessions: sessions, logger: logger}
}

type credentialsPayload struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) RegisterVictim(w http.ResponseWriter, r *http.Request) {
	var in credentialsPayload
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	v, err := h.accounts.RegisterVictim(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.startSession(w, r, v.ID, auth.SubjectVictim)
	writeJSON(w, http.StatusCreated, v)
}

func (h *AuthHandler) LoginVictim(w http.ResponseWriter, r *http.Request) {
	var in credentialsPayload
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	v, err := h.accounts.LoginVictim(r.Context(), in.Email, in.Password)
	if err != nil {
		h.respondLoginFailure(w, err)
		return
	}
	h.startSession(w, r, v.ID, auth.SubjectVictim)
	writeJSON(w, http.StatusOK, v)
}

func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var in credentialsPayload
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	a, err := h.accounts.LoginAdmin(r.Context(), in.Email, in.Password)
	if err != nil {
		h.respondLoginFailure(w, err)
		return
	}
	h.startSession(w, r, a.ID, auth.SubjectAdmin)
	writeJSON(w, http.StatusOK, a)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sr := sessionFrom(r); sr != nil {
		if err := h.sessions.Delete(r.Context(), sr.ID); err != nil {
			h.logger.Errorf("logout session %s: %v", sr.ID, err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "phishnet_session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	if sr == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": sr.SubjectID,
		"kind":       sr.Kind,
		"expires_at": sr.ExpiresAt,
	})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, subjectID int64, kind string) {
	rec, err := h.sessions.Create(r.Context(), subjectID, kind)
	if err != nil {
		h.logger.Errorf("create session for %s %d: %v", kind, subjectID, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "phishnet_session",
		Value:    rec.ID,
		Path:     "/",
		Expires:  rec.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) respondLoginFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrBadCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if strings.Contains(err.Error(), "suspended") {
		http.Error(w, "account suspended", http.StatusForbidden)
		return
	}
	http.Error(w, "server error", http.StatusInternalServerError)
}

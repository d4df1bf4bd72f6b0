package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/teachkit/internal/model"
)

// DefaultCookieName is the session cookie the stand-in backend sets
const DefaultCookieName = "TEACHKIT_SESSION"

// Handler serves the session API
type Handler struct {
	accounts   *Accounts
	cookieName string
	metrics    *serverMetrics
	logger     *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type resetRequest struct {
	Action          string `json:"action"`
	Email           string `json:"email"`
	Code            string `json:"code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type verifyRequest struct {
	Username string `json:"username"`
}

type roleRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return newBadRequest("Ungültige Anfrage")
	}
	return nil
}

// SessionCheck handles GET /api/session-check
func (h *Handler) SessionCheck(w http.ResponseWriter, r *http.Request) {
	acc, err := h.current(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"logged_in": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in": true,
		"user":      userFromAccount(acc),
	})
}

// Login handles POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	acc, token, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.metrics.login(false)
		writeError(w, err)
		return
	}
	h.metrics.login(true)

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, result{Success: true, User: userFromAccount(acc)})
}

// Register handles POST /api/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, newBadRequest("Bitte alle Felder ausfüllen"))
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, newBadRequest("Passwörter stimmen nicht überein"))
		return
	}

	acc, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if !acc.Verified {
		h.logger.Info("verification required", slog.String("username", acc.Username), slog.String("email", acc.Email))
		writeJSON(w, http.StatusOK, result{
			Success:              true,
			RequiresVerification: true,
			Message:              "Bitte bestätige deine E-Mail-Adresse.",
		})
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Message: "Registrierung erfolgreich"})
}

// Logout handles GET /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookieName); err == nil {
		h.accounts.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:    h.cookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, result{Success: true})
}

// PasswordReset handles POST /api/password-reset
func (h *Handler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, newBadRequest("Bitte E-Mail-Adresse eingeben"))
		return
	}

	switch req.Action {
	case "request":
		if code, ok := h.accounts.RequestReset(r.Context(), req.Email); ok {
			// Mail delivery is out of scope; the code goes to the log
			h.logger.Info("password reset code issued", slog.String("email", req.Email), slog.String("code", code))
		}
		h.metrics.reset(req.Action, true)
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Falls ein Konto existiert, wurde ein Code gesendet."})

	case "verify":
		if err := h.accounts.VerifyReset(r.Context(), req.Email, req.Code); err != nil {
			h.metrics.reset(req.Action, false)
			writeError(w, err)
			return
		}
		h.metrics.reset(req.Action, true)
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Code bestätigt"})

	case "reset":
		if req.NewPassword != req.ConfirmPassword {
			writeError(w, newBadRequest("Passwörter stimmen nicht überein"))
			return
		}
		username, err := h.accounts.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword)
		if err != nil {
			h.metrics.reset(req.Action, false)
			writeError(w, err)
			return
		}
		h.metrics.reset(req.Action, true)
		writeJSON(w, http.StatusOK, result{Success: true, Message: "Passwort wurde geändert", Username: username})

	default:
		writeError(w, newBadRequest("Unbekannte Aktion"))
	}
}

// Verify handles POST /api/dev/verify, standing in for the emailed link
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.accounts.Verify(req.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

// SetRole handles POST /api/dev/role. Only administrators may call it.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	acc, err := h.current(r)
	if err != nil || acc.Role != model.RoleAdministrator {
		writeJSON(w, http.StatusForbidden, result{Success: false, Message: "Keine Berechtigung"})
		return
	}

	var req roleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	role := model.ParseRole(req.Role)
	if err := h.accounts.SetRole(req.Username, role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

// Crash handles GET /api/dev/crash; it panics so clients can see a backend error page
func (h *Handler) Crash(w http.ResponseWriter, r *http.Request) {
	panic(errors.New("requested crash"))
}

// current returns the account of the request's session cookie
func (h *Handler) current(r *http.Request) (*Account, error) {
	c, err := r.Cookie(h.cookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return h.accounts.Lookup(c.Value)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

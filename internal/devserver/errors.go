package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
)

// result is the envelope every endpoint answers with
type result struct {
	Success              bool      `json:"success"`
	Message              string    `json:"message,omitempty"`
	User                 *userJSON `json:"user,omitempty"`
	RequiresVerification bool      `json:"requires_verification,omitempty"`
	Username             string    `json:"username,omitempty"`
}

type userJSON struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func userFromAccount(acc *Account) *userJSON {
	return &userJSON{
		ID:       acc.ID,
		Username: acc.Username,
		Email:    acc.Email,
		Role:     string(acc.Role),
	}
}

// httpError combines an HTTP status code with a user-facing message
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return e.message
}

func newBadRequest(message string) error {
	return &httpError{http.StatusBadRequest, message}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps err onto a {success:false} response
func writeError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	writeJSON(w, he.status, result{Success: false, Message: he.message})
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, "Login fehlgeschlagen"}
	case errors.Is(err, ErrNotVerified):
		return &httpError{http.StatusForbidden, "Bitte bestätige zuerst deine E-Mail-Adresse."}
	case errors.Is(err, ErrUsernameExists):
		return &httpError{http.StatusConflict, "Benutzername bereits vergeben"}
	case errors.Is(err, ErrEmailExists):
		return &httpError{http.StatusConflict, "E-Mail-Adresse bereits registriert"}
	case errors.Is(err, ErrInvalidInput):
		return &httpError{http.StatusBadRequest, "Ungültige Eingabe"}
	case errors.Is(err, ErrInvalidCode):
		return &httpError{http.StatusBadRequest, "Ungültiger oder abgelaufener Code"}
	case errors.Is(err, ErrAccountNotFound):
		return &httpError{http.StatusNotFound, "Konto nicht gefunden"}
	default:
		return &httpError{http.StatusInternalServerError, "Interner Serverfehler"}
	}
}

// panicHandler answers a recovered panic with an HTML page, like a PHP
// backend's fatal error page would
func panicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("<html><head><title>500 Internal Server Error</title></head><body><h1>Internal Server Error</h1></body></html>"))
}

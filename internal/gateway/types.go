package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mcoot/teachkit/internal/model"
)

// userPayload is the backend's user object. The id may arrive as a string or a number.
type userPayload struct {
	ID       json.RawMessage `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
}

type sessionCheckResponse struct {
	LoggedIn bool         `json:"logged_in"`
	User     *userPayload `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool         `json:"success"`
	User    *userPayload `json:"user"`
	Message string       `json:"message"`
}

// Registration holds the fields submitted to the register endpoint
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type registerResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	RequiresVerification bool   `json:"requires_verification"`
}

// RegistrationResult distinguishes an active account from one awaiting email verification
type RegistrationResult struct {
	RequiresVerification bool
	Message              string
}

// Password reset actions
const (
	ResetActionRequest = "request"
	ResetActionVerify  = "verify"
	ResetActionReset   = "reset"
)

type resetRequest struct {
	Action          string `json:"action"`
	Email           string `json:"email"`
	Code            string `json:"code,omitempty"`
	NewPassword     string `json:"new_password,omitempty"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

type resetResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// ResetResult is the outcome of a successful password reset step
type ResetResult struct {
	Message  string
	Username string
}

// toSession converts a user payload into a complete Session, or returns false
func (u *userPayload) toSession() (*model.Session, bool) {
	if u == nil {
		return nil, false
	}
	sess := &model.Session{
		UserID:   model.UserID(normalizeID(u.ID)),
		Username: strings.TrimSpace(u.Username),
		Email:    strings.TrimSpace(u.Email),
		Role:     model.ParseRole(u.Role),
	}
	return sess, sess.Complete()
}

// normalizeID turns a JSON string or number into its string form
func normalizeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

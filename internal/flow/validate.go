package flow

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/teachkit/internal/model"
)

const (
	minPasswordLength = 8
	minUsernameLength = 3
	resetCodeLength   = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterFields are the inputs of the registration tab
type RegisterFields struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

func validateLogin(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return model.ErrLoginFieldsRequired
	}
	return nil
}

// validateRegister applies the rules in order; the first failure wins
func validateRegister(f RegisterFields) error {
	if strings.TrimSpace(f.Username) == "" || strings.TrimSpace(f.Email) == "" ||
		f.Password == "" || f.PasswordConfirm == "" {
		return model.ErrRegisterFieldsRequired
	}
	if f.Password != f.PasswordConfirm {
		return model.ErrPasswordMismatch
	}
	if utf8.RuneCountInString(f.Password) < minPasswordLength {
		return model.ErrPasswordTooShort
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Username)) < minUsernameLength {
		return model.ErrUsernameTooShort
	}
	if !emailPattern.MatchString(strings.TrimSpace(f.Email)) {
		return model.ErrInvalidEmail
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return model.ErrEmailRequired
	}
	return nil
}

func validateCode(code string) error {
	if utf8.RuneCountInString(strings.TrimSpace(code)) != resetCodeLength {
		return model.ErrCodeLength
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if password == "" || confirm == "" {
		return model.ErrPasswordFieldsRequired
	}
	if password != confirm {
		return model.ErrPasswordMismatch
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return model.ErrPasswordTooShort
	}
	return nil
}

package model

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied matches any PermissionDeniedError via errors.Is
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError is a local, pre-network rejection of user input.
// It is always recoverable and shown inline next to the active step.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation errors for the sign-in, registration and password reset forms
var (
	ErrLoginFieldsRequired    = &ValidationError{Rule: "login_required", Message: "Bitte Benutzername und Passwort eingeben"}
	ErrRegisterFieldsRequired = &ValidationError{Rule: "register_required", Message: "Bitte alle Felder ausfüllen"}
	ErrPasswordMismatch       = &ValidationError{Rule: "password_mismatch", Message: "Passwörter stimmen nicht überein"}
	ErrPasswordTooShort       = &ValidationError{Rule: "password_length", Message: "Passwort muss mindestens 8 Zeichen lang sein"}
	ErrUsernameTooShort       = &ValidationError{Rule: "username_length", Message: "Benutzername muss mindestens 3 Zeichen lang sein"}
	ErrInvalidEmail           = &ValidationError{Rule: "email_format", Message: "Bitte eine gültige E-Mail-Adresse eingeben"}
	ErrEmailRequired          = &ValidationError{Rule: "email_required", Message: "Bitte E-Mail-Adresse eingeben"}
	ErrCodeLength             = &ValidationError{Rule: "code_length", Message: "Der Code muss genau 6 Zeichen lang sein"}
	ErrPasswordFieldsRequired = &ValidationError{Rule: "password_required", Message: "Bitte beide Passwortfelder ausfüllen"}
)

// PermissionDeniedError is raised by invocation-time guards when an action is
// attempted without the required capability
type PermissionDeniedError struct {
	Capability Capability
	Surface    string
	Role       Role
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("Keine Berechtigung: %q erforderlich", e.Capability.String())
}

// Is lets errors.Is(err, ErrPermissionDenied) match
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

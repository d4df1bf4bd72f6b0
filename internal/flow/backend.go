// Package flow drives the interactive credential procedures: sign-in,
// registration and password reset. Each is an explicit state machine with
// per-step validation, one network call per step and recoverable errors.
package flow

import (
	"context"
	"errors"

	"github.com/mcoot/teachkit/internal/gateway"
	"github.com/mcoot/teachkit/internal/model"
)

// Errors
var (
	ErrSubmitInFlight    = errors.New("a submission is already in flight")
	ErrInvalidTransition = errors.New("transition not allowed from the current step")
	ErrFlowClosed        = errors.New("flow is closed")
)

// SignInBackend performs the login and registration calls
type SignInBackend interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Register(ctx context.Context, reg gateway.Registration) (*gateway.RegistrationResult, error)
}

// ResetBackend performs the three password reset calls
type ResetBackend interface {
	RequestResetCode(ctx context.Context, email string) (*gateway.ResetResult, error)
	VerifyResetCode(ctx context.Context, email, code string) (*gateway.ResetResult, error)
	ResetPassword(ctx context.Context, email, code, newPassword, confirm string) (*gateway.ResetResult, error)
}

// SessionBackend checks and ends the backend session
type SessionBackend interface {
	CheckSession(ctx context.Context) (*model.Session, error)
	Logout(ctx context.Context) error
}

// Backend is everything the flows need from the gateway
type Backend interface {
	SignInBackend
	ResetBackend
	SessionBackend
}

var _ Backend = (*gateway.Gateway)(nil)

// SessionWriter is the part of the session store the flows write to
type SessionWriter interface {
	SetSession(sess *model.Session)
	GetSession() *model.Session
}

// SubmitControl describes how the active step's submit button should render
type SubmitControl struct {
	Label   string
	Enabled bool
}

// userMessage turns any error from a step into the text shown next to it
func userMessage(err error) string {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return gateway.UserMessage(err)
}

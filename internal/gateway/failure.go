package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure. Callers branch on Kind, never on
// transport details.
type Kind string

const (
	// KindUnauthorized means the backend rejected the credentials
	KindUnauthorized Kind = "unauthorized"
	// KindRejected means the backend refused a registration or reset request
	KindRejected Kind = "rejected"
	// KindProtocolMismatch means the response was not the structured data the contract promises
	KindProtocolMismatch Kind = "protocol_mismatch"
	// KindNetworkUnavailable means the request never produced a response
	KindNetworkUnavailable Kind = "network_unavailable"
)

// Sentinels for errors.Is matching on a Failure's kind
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRejected           = errors.New("rejected by backend")
	ErrProtocolMismatch   = errors.New("protocol mismatch")
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Default user-facing messages
const (
	MsgLoginFailed        = "Login fehlgeschlagen"
	MsgRegisterFailed     = "Registrierung fehlgeschlagen"
	MsgRequestFailed      = "Anfrage fehlgeschlagen"
	MsgProtocolMismatch   = "Unerwartete Antwort vom Server. Bitte versuche es erneut."
	MsgNetworkUnavailable = "Netzwerkfehler. Bitte prüfe deine Verbindung."
)

// Failure is the single error type returned by the gateway
type Failure struct {
	Kind Kind
	// Message is short, human-readable and safe to show to the user
	Message string
	// Status is the HTTP status code, or 0 if no response arrived
	Status int
	// Diagnostic carries details for logs (e.g. the title of an HTML error page)
	Diagnostic string
	Err        error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the kind sentinels
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return f.Kind == KindUnauthorized
	case ErrRejected:
		return f.Kind == KindRejected
	case ErrProtocolMismatch:
		return f.Kind == KindProtocolMismatch
	case ErrNetworkUnavailable:
		return f.Kind == KindNetworkUnavailable
	}
	return false
}

// AsFailure extracts a *Failure from err
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// UserMessage returns the message to show for any error coming out of the gateway.
// Unknown errors get the generic protocol message.
func UserMessage(err error) string {
	if f, ok := AsFailure(err); ok && f.Message != "" {
		return f.Message
	}
	return MsgProtocolMismatch
}

func newNetworkFailure(err error) *Failure {
	return &Failure{Kind: KindNetworkUnavailable, Message: MsgNetworkUnavailable, Err: err}
}

func newProtocolFailure(status int, diagnostic string, err error) *Failure {
	return &Failure{
		Kind:       KindProtocolMismatch,
		Message:    MsgProtocolMismatch,
		Status:     status,
		Diagnostic: diagnostic,
		Err:        err,
	}
}

// rejection builds an Unauthorized or Rejected failure, preferring the backend's message
func rejection(kind Kind, status int, backendMessage, fallback string) *Failure {
	msg := backendMessage
	if msg == "" {
		msg = fallback
	}
	return &Failure{Kind: kind, Message: msg, Status: status}
}

package model

// UserID is the backend's opaque identifier for an account
type UserID string

// Session is the materialized result of a successful authentication handshake.
// It is held client-side only; the backend owns durable session state.
type Session struct {
	UserID   UserID
	Username string
	Email    string
	Role     Role
}

// Complete reports whether every field is populated.
// A session is either wholly present or wholly absent; partial sessions are invalid.
func (s *Session) Complete() bool {
	if s == nil {
		return false
	}
	return s.UserID != "" && s.Username != "" && s.Email != "" && s.Role != ""
}

// Clone returns a copy of the session, or nil
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

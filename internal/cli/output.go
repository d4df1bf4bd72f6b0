package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/capability"
	"github.com/mcoot/teachkit/internal/enforce"
	"github.com/mcoot/teachkit/internal/model"
)

// Output formats results in the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case SessionView:
		o.printSession(v)
	case CanResult:
		o.printCan(v)
	case []audit.Event:
		o.printEvents(v)
	case SurfaceChange:
		o.printSurfaceChange(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// SessionView describes the current session
type SessionView struct {
	LoggedIn     bool     `json:"logged_in"`
	UserID       string   `json:"user_id,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
}

func newSessionView(sess *model.Session) SessionView {
	role := model.RoleGuest
	v := SessionView{}
	if sess != nil {
		role = sess.Role
		v.LoggedIn = true
		v.UserID = string(sess.UserID)
		v.Username = sess.Username
		v.Email = sess.Email
	}
	v.Role = string(role)
	for _, c := range capability.For(role).List() {
		v.Capabilities = append(v.Capabilities, c.String())
	}
	return v
}

// CanResult answers a capability check
type CanResult struct {
	Capability string `json:"capability"`
	Role       string `json:"role"`
	Allowed    bool   `json:"allowed"`
}

// SurfaceChange is printed by watch when a surface's decision changes
type SurfaceChange struct {
	Surface  string           `json:"surface"`
	Decision enforce.Decision `json:"decision"`
}

// HealthResult is the backend's health response
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printSession(v SessionView) {
	if !v.LoggedIn {
		fmt.Fprintln(o.w, "Not logged in")
	} else {
		fmt.Fprintf(o.w, "User: %s (%s)\n", v.Username, v.UserID)
		fmt.Fprintf(o.w, "Email: %s\n", v.Email)
	}
	fmt.Fprintf(o.w, "Role: %s\n", v.Role)
	fmt.Fprintf(o.w, "Capabilities: %s\n", strings.Join(v.Capabilities, ", "))
}

func (o *Output) printCan(v CanResult) {
	verdict := "denied"
	if v.Allowed {
		verdict = "allowed"
	}
	fmt.Fprintf(o.w, "%s: %s (role %s)\n", v.Capability, verdict, v.Role)
}

func (o *Output) printEvents(events []audit.Event) {
	if len(events) == 0 {
		fmt.Fprintln(o.w, "No events")
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %-15s %s", ev.At.Format("2006-01-02 15:04:05"), ev.Kind, ev.Username)
		if ev.Detail != "" {
			line += " (" + ev.Detail + ")"
		}
		fmt.Fprintln(o.w, line)
	}
}

func (o *Output) printSurfaceChange(v SurfaceChange) {
	state := "hidden"
	if v.Decision.Visible {
		state = "shown"
	}
	fmt.Fprintf(o.w, "%s: %s\n", v.Surface, state)
}

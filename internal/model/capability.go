package model

// Capability is a named permitted action, derived from a Role
type Capability string

const (
	// Always gates nothing; surfaces registered with it are always shown
	Always Capability = ""

	CapPlay           Capability = "play"
	CapFeedback       Capability = "feedback"
	CapEditor         Capability = "editor"
	CapStats          Capability = "stats"
	CapUserManagement Capability = "user_management"
)

// Capabilities lists every known capability
var Capabilities = []Capability{CapPlay, CapFeedback, CapEditor, CapStats, CapUserManagement}

// ParseCapability returns the capability with the given name
func ParseCapability(s string) (Capability, bool) {
	for _, c := range Capabilities {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Capability) String() string {
	if c == Always {
		return "always"
	}
	return string(c)
}

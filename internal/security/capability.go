package security

import "strings"

// Capability is the closed set of staff permissions on the management API.
type Capability string

const (
	CapabilityView   Capability = "applications.view"
	CapabilityManage Capability = "applications.manage"
)

// ParseCapabilities drops unknown values.
func ParseCapabilities(values []string) []Capability {
	out := make([]Capability, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		switch Capability(v) {
		case CapabilityView, CapabilityManage:
			out = append(out, Capability(v))
		}
	}
	return out
}

// Allows reports whether granted covers need. Manage implies view.
func Allows(granted []Capability, need Capability) bool {
	for _, c := range granted {
		if c == need || c == CapabilityManage {
			return true
		}
	}
	return false
}

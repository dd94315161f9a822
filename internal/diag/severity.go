package diag

import "strings"

// Severity orders diagnostics. Any SevError entry fails the build.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

// String is the upper-case form printed by the pretty and JSON formats.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// Label is the lower-case form of the short format.
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

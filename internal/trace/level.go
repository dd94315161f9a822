package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // command spans only; pair with ring mode for post-mortems
	LevelPhase               // driver + pass boundaries
	LevelDetail              // per-function events
	LevelDebug               // everything including single instructions
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

// maxScope is the finest scope each level lets through.
var maxScope = [...]Scope{
	LevelOff:    0,
	LevelError:  ScopeDriver,
	LevelPhase:  ScopePass,
	LevelDetail: ScopeFunction,
	LevelDebug:  ScopeInstr,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level, ignoring case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(maxScope) && scope != 0 && scope <= maxScope[l]
}

// accepts also lets heartbeats through regardless of their scope.
func accepts(l Level, ev *Event) bool {
	return ev.Kind == KindHeartbeat || l.ShouldEmit(ev.Scope)
}

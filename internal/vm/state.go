package vm

import (
	"fmt"

	"baml/internal/bytecode"
	"baml/internal/viz"
	"baml/internal/watch"
)

// StateKind says why Exec returned.
type StateKind uint8

const (
	// StateComplete: the entry function returned Value.
	StateComplete StateKind = iota
	// StateAwait: the future in Future is awaited but still pending.
	StateAwait
	// StateScheduleFuture: the future in Future was just created and must be
	// handed to a resolver. Execution may continue before it resolves.
	StateScheduleFuture
	// StateNotify: Notification must be delivered.
	StateNotify
)

func (k StateKind) String() string {
	switch k {
	case StateComplete:
		return "complete"
	case StateAwait:
		return "await"
	case StateScheduleFuture:
		return "schedule_future"
	case StateNotify:
		return "notify"
	default:
		return fmt.Sprintf("StateKind(%d)", k)
	}
}

// ExecState is the result of one Exec call.
type ExecState struct {
	Kind         StateKind
	Value        bytecode.Value
	Future       bytecode.ObjectIndex
	Notification Notification
}

func (s ExecState) String() string {
	switch s.Kind {
	case StateComplete:
		return "complete(" + s.Value.String() + ")"
	case StateAwait, StateScheduleFuture:
		return fmt.Sprintf("%s(#%d)", s.Kind, s.Future)
	default:
		return "notify(" + s.Notification.String() + ")"
	}
}

// NotificationKind separates watched variables from viz events.
type NotificationKind uint8

const (
	NotifyVariables NotificationKind = iota
	NotifyViz
)

// Notification is the payload of StateNotify. Variables notifications list
// the watched roots that changed, locals first; resolve them with
// VM.WatchedVariable. Viz notifications carry one enter or exit event of
// Function.
type Notification struct {
	Kind     NotificationKind
	Roots    []watch.NodeID
	Function string
	Event    viz.ExecEvent
}

func (n Notification) String() string {
	if n.Kind == NotifyViz {
		return fmt.Sprintf("viz %s %s %d", n.Function, n.Event.Event, n.Event.NodeID)
	}
	return fmt.Sprintf("variables %v", n.Roots)
}

func complete(v bytecode.Value) ExecState {
	return ExecState{Kind: StateComplete, Value: v}
}

func notifyVariables(roots []watch.NodeID) ExecState {
	return ExecState{Kind: StateNotify, Notification: Notification{Kind: NotifyVariables, Roots: roots}}
}

func notifyViz(function string, ev viz.ExecEvent) ExecState {
	return ExecState{Kind: StateNotify, Notification: Notification{Kind: NotifyViz, Function: function, Event: ev}}
}

package viz

// State is the lifecycle of a node while replaying events.
type State uint8

const (
	NotRunning State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "not_running"
	}
}

// Update is one node state change produced by the reducer.
type Update struct {
	NodeID       uint32
	LogFilterKey string
	State        State
}

// Frame is an entered node on the reducer stack.
type Frame struct {
	NodeID       uint32
	Segment      PathSegment
	LogFilterKey string
	Function     string
	Type         NodeType
	Label        string
	HeaderLevel  uint8
}

// Reducer replays ExecEvents into node state transitions. It keeps a single
// stack; calls into other functions push that function's root on top.
type Reducer struct {
	frames []Frame
}

// Apply folds one event emitted while running function.
func (r *Reducer) Apply(function string, ev ExecEvent) []Update {
	if ev.Event == Exit {
		return r.exit(function, ev)
	}
	return r.enter(function, ev)
}

// Stack returns a copy of the open frames, root first.
func (r *Reducer) Stack() []Frame {
	return append([]Frame(nil), r.frames...)
}

// Keys returns the log filter keys of the open frames, root first.
func (r *Reducer) Keys() []string {
	out := make([]string, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.LogFilterKey
	}
	return out
}

func (r *Reducer) enter(function string, ev ExecEvent) []Update {
	var updates []Update

	owner := function
	if ev.NodeType != NodeFunctionRoot && len(r.frames) > 0 {
		owner = r.frames[len(r.frames)-1].Function
	}

	if ev.NodeType == NodeHeader {
		level := max(ev.HeaderLevel, 1)
		for len(r.frames) > 0 {
			top := r.frames[len(r.frames)-1]
			if top.Type != NodeHeader || top.Function != owner || max(top.HeaderLevel, 1) < level {
				break
			}
			r.frames = r.frames[:len(r.frames)-1]
			updates = append(updates, Update{NodeID: top.NodeID, LogFilterKey: top.LogFilterKey, State: Completed})
		}
	}

	segments := make([]PathSegment, 0, len(r.frames)+1)
	for _, f := range r.frames {
		if f.Function == owner {
			segments = append(segments, f.Segment)
		}
	}
	segments = append(segments, ev.Segment)
	key := EncodeSegments(owner, segments)

	r.frames = append(r.frames, Frame{
		NodeID:       ev.NodeID,
		Segment:      ev.Segment,
		LogFilterKey: key,
		Function:     owner,
		Type:         ev.NodeType,
		Label:        ev.Label,
		HeaderLevel:  ev.HeaderLevel,
	})
	return append(updates, Update{NodeID: ev.NodeID, LogFilterKey: key, State: Running})
}

// exit pops up to and including the matching frame. An exit with no match
// leaves the stack untouched.
func (r *Reducer) exit(function string, ev ExecEvent) []Update {
	match := -1
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Segment == ev.Segment && r.frames[i].Function == function {
			match = i
			break
		}
	}
	if match < 0 {
		return nil
	}
	updates := make([]Update, 0, len(r.frames)-match)
	for i := len(r.frames) - 1; i >= match; i-- {
		f := r.frames[i]
		updates = append(updates, Update{NodeID: f.NodeID, LogFilterKey: f.LogFilterKey, State: Completed})
	}
	r.frames = r.frames[:match]
	return updates
}

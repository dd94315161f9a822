package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var seqCounter, spanCounter atomic.Uint64

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh span id. Zero is never returned.
func NextSpanID() uint64 { return spanCounter.Add(1) }

// goroutineID reads the id from the header of runtime.Stack,
// "goroutine 7 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	fields := bytes.Fields(buf[:runtime.Stack(buf[:], false)])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Span is an open interval on the trace timeline. Spans from a disabled
// tracer, or at a scope the level filters out, accept every call and
// record nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	gid     uint64
	scope   Scope
	name    string
	started time.Time
	attrs   map[string]string
}

// Begin opens a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}
	s := &Span{
		tracer:  t,
		id:      NextSpanID(),
		parent:  parent,
		gid:     goroutineID(),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Seq:      NextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
	}
}

// Child opens a span nested under s.
func (s *Span) Child(scope Scope, name string) *Span {
	if !s.live() {
		return &Span{tracer: Nop}
	}
	return Begin(s.tracer, scope, name, s.id)
}

// Attr records key=value on the end event.
func (s *Span) Attr(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
	return s
}

// End emits the end event and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	dur := time.Since(s.started)
	ev := s.event(KindSpanEnd, time.Now(), detail)
	ev.Extra = s.attrs
	s.tracer.Emit(ev)
	return dur
}

// Fail ends the span with err stored under "error". A nil err is a plain
// End.
func (s *Span) Fail(err error) time.Duration {
	if err != nil {
		s.Attr("error", err.Error())
	}
	return s.End("")
}

// ID is 0 for a span that records nothing.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

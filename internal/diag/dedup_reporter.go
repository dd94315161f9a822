package diag

import "baml/internal/source"

type dedupKey struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

// DedupReporter forwards a diagnostic only the first time it sees it.
// Parser recovery can stop on the same token twice and report it again.
type DedupReporter struct {
	next    Reporter
	seen    map[dedupKey]struct{}
	dropped int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil {
		return
	}
	key := dedupKey{code: code, sev: sev, span: primary, msg: msg}
	if _, ok := r.seen[key]; ok {
		r.dropped++
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}

// Dropped counts the duplicates swallowed so far.
func (r *DedupReporter) Dropped() int {
	if r == nil {
		return 0
	}
	return r.dropped
}

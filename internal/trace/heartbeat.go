package trace

import (
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a driver-scope event at a fixed interval. A run stuck
// awaiting a future keeps beating without closing spans, which tells a
// hang apart from a crash.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat returns nil when t is disabled or interval is not
// positive; Stop accepts nil.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(t, interval)
	return h
}

func (h *Heartbeat) run(t Tracer, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			t.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: "#" + strconv.Itoa(n),
				Extra:  map[string]string{"goroutines": strconv.Itoa(runtime.NumGoroutine())},
			})
		}
	}
}

// Stop ends the heartbeat and waits for its goroutine. Calling it twice is
// fine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

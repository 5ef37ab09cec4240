package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory so a failed run can dump
// what led up to the failure. With a mirror set ("both" mode) every event is
// also streamed as it happens.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	next   int
	count  int
	level  Level
	mirror *StreamTracer
}

// NewRingTracer keeps up to capacity events (4096 when capacity <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

// Emit stores ev, overwriting the oldest event once the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	if t.mirror != nil {
		t.mirror.Emit(ev)
	}
	if !t.level.Records(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}

	t.mu.Lock()
	t.events[t.next] = *ev
	t.next = (t.next + 1) % len(t.events)
	if t.count < len(t.events) {
		t.count++
	}
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.events)) % len(t.events)
	for i := range t.count {
		out = append(out, t.events[(start+i)%len(t.events)])
	}
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error {
	if t.mirror != nil {
		return t.mirror.Flush()
	}
	return nil
}

func (t *RingTracer) Close() error {
	if t.mirror != nil {
		return t.mirror.Close()
	}
	return nil
}

func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

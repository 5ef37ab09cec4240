package trace

import (
	"context"
	"time"
)

// StartHeartbeat emits a heartbeat event every interval until ctx is done or
// the returned stop func is called. A glibc build runs for minutes; beats
// without span ends tell a slow build from a hung one. Each beat carries the
// time since the heartbeat started.
func StartHeartbeat(ctx context.Context, t Tracer, interval time.Duration) (stop func()) {
	if t == nil || !t.Enabled() || interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	started := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				t.Emit(&Event{
					Time:   now,
					Seq:    NextSeq(),
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					Name:   "heartbeat",
					Detail: "running " + now.Sub(started).Round(time.Second).String(),
				})
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

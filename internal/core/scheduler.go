package core

// scheduler.go runs background maintenance for the session store.
//
// The janitor removes idle sessions so uploaded bytes do not pile up in
// memory. It logs what it removed and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the janitor runs when unset.
const DefaultSweepInterval = time.Minute

// StartJanitor sweeps expired sessions every interval until ctx is done.
// It blocks, so run it in its own goroutine.
func (st *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session janitor started", "interval", interval, "ttl", st.ttl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "removed", n, "remaining", st.Len())
			}
		}
	}
}

package recording

import (
	"context"
	"testing"
	"time"
)

func TestReaperSweepsIdleSessions(t *testing.T) {
	m, _, _, _ := newTestManager()

	started := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return started }
	m.Start()
	m.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartReaper(ctx, m, time.Hour, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for m.Count() > 0 {
		select {
		case <-deadline:
			t.Fatal("Reaper did not remove the idle session in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

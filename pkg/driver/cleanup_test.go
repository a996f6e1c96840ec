package driver

import (
	"sync/atomic"
	"testing"
)

func TestCleanupWorker_RunsTasks(t *testing.T) {
	w := newCleanupWorker(8)
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		w.schedule(func() { ran.Add(1) })
	}
	w.stop()
	if got := ran.Load(); got != 5 {
		t.Errorf("tasks run = %d, want 5", got)
	}
}

func TestCleanupWorker_StopIsIdempotent(t *testing.T) {
	w := newCleanupWorker(1)
	w.stop()
	w.stop()
	// Scheduling after stop is a no-op, not a panic.
	w.schedule(func() { t.Error("task ran after stop") })
}

func TestCleanupWorker_DropsWhenFull(t *testing.T) {
	w := newCleanupWorker(1)
	defer w.stop()

	block := make(chan struct{})
	started := make(chan struct{})
	w.schedule(func() {
		close(started)
		<-block
	})
	<-started

	// Worker is busy; the queue holds one task, anything further is
	// dropped silently.
	var ran atomic.Int32
	w.schedule(func() { ran.Add(1) })
	for i := 0; i < 10; i++ {
		w.schedule(func() { ran.Add(1) })
	}
	close(block)
	w.stop()
	if got := ran.Load(); got != 1 {
		t.Errorf("tasks run = %d, want 1 (rest dropped)", got)
	}
}

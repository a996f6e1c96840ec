package driver

import (
	"sync"

	"github.com/grouplane-network/grouplane/pkg/util"
)

// cleanupWorker runs repair tasks off the read path. A single goroutine
// consumes a bounded queue; no caller ever waits on it. When the queue is
// full the task is dropped; the next reconciliation pass rediscovers
// whatever was left behind.
type cleanupWorker struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newCleanupWorker(queueSize int) *cleanupWorker {
	w := &cleanupWorker{tasks: make(chan func(), queueSize)}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *cleanupWorker) run() {
	defer w.wg.Done()
	for task := range w.tasks {
		task()
	}
}

// schedule enqueues a repair task without blocking.
func (w *cleanupWorker) schedule(task func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.tasks <- task:
	default:
		util.Warn("Cleanup queue full, dropping repair task")
	}
}

// stop drains queued tasks and stops the worker.
func (w *cleanupWorker) stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.tasks)
	w.mu.Unlock()
	w.wg.Wait()
}

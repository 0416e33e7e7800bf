package auditlog

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// dequeueWait bounds how long the worker blocks on an empty queue before
// rechecking the stop flag.
const dequeueWait = time.Second

type workerState struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	processed atomic.Uint64
	dropped   atomic.Uint64
}

// enqueue offers an operation to the queue without blocking. A full queue
// drops the operation: audit durability is best-effort, the caller is not.
func (l *Logger) enqueue(op func()) bool {
	select {
	case l.queue <- op:
		return true
	default:
		l.state.dropped.Add(1)
		l.logger.Warn("audit queue full; dropping operation")
		return false
	}
}

// ensureWorker starts the background worker if it is not already running.
// Safe to call from any goroutine; the start is idempotent.
func (l *Logger) ensureWorker() {
	s := &l.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go l.run(s.stop, s.done)
}

// run processes the queue one operation at a time. Operation panics are
// caught and logged; nothing is retried and the loop never exits on failure.
// A stop request drains whatever is already queued before the worker exits.
func (l *Logger) run(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			l.drain()
			return
		case op := <-l.queue:
			l.safeRun(op)
		case <-time.After(dequeueWait):
			// Idle cycle; loop to recheck the stop flag.
		}
	}
}

// drain runs every operation already queued at stop time. New enqueues may
// still race in; anything arriving after the final pass is dropped with the
// worker gone, which Status reports through the queue depth.
func (l *Logger) drain() {
	for {
		select {
		case op := <-l.queue:
			l.safeRun(op)
		default:
			return
		}
	}
}

func (l *Logger) safeRun(op func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("audit operation panicked", zap.Any("panic", r))
		}
	}()
	op()
	l.state.processed.Add(1)
}

// Close stops the worker cooperatively and waits for it with a timeout.
// Queued operations are drained before the worker exits; if the drain
// exceeds the timeout the remaining operations are abandoned and a warning
// is logged.
func (l *Logger) Close() {
	s := &l.state
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		l.logger.Warn("audit worker did not stop within timeout")
	}
}

// QueueDepth returns the number of operations waiting for the worker.
func (l *Logger) QueueDepth() int {
	return len(l.queue)
}

package homie

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/homie-device/internal/scheduler"
)

// Runtime is the process-scoped context shared by devices.
//
// It owns the instance counter used for default ids and last-will claims,
// and the scheduler that drives stats publication for every device. Tests
// create one Runtime each to stay isolated.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Runtime struct {
	instances atomic.Int64

	mu           sync.Mutex
	sched        Scheduler
	newScheduler func(interval time.Duration) Scheduler
	logger       Logger
}

// NewRuntime creates an empty Runtime. The scheduler is created on the first
// Start of a device that declares the stats extension.
func NewRuntime() *Runtime {
	r := &Runtime{logger: noopLogger{}}
	r.newScheduler = func(interval time.Duration) Scheduler {
		return scheduler.NewRepeating(interval, r.logger)
	}
	return r
}

// SetLogger sets the logger handed to the shared scheduler.
func (r *Runtime) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Instances returns how many devices have been constructed with this Runtime.
func (r *Runtime) Instances() int64 {
	return r.instances.Load()
}

// nextInstance increments the counter and returns the new instance number.
// The first device of a Runtime is instance 1.
func (r *Runtime) nextInstance() int64 {
	return r.instances.Add(1)
}

// scheduler returns the shared scheduler, creating it with interval if this
// is the first request.
func (r *Runtime) scheduler(interval time.Duration) Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sched == nil {
		r.sched = r.newScheduler(interval)
	}
	return r.sched
}

// Close stops the shared scheduler, if one was created.
func (r *Runtime) Close() {
	r.mu.Lock()
	sched := r.sched
	r.sched = nil
	r.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
}

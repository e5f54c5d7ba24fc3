package scheduler

import (
	"sync"
	"time"
)

// Logger is the logging interface used for callback failures.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Repeating invokes its registered callbacks every interval.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Repeating struct {
	interval time.Duration
	logger   Logger

	mu        sync.Mutex
	callbacks []func()

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRepeating creates a timer and starts its goroutine immediately.
//
// Parameters:
//   - interval: Period between runs (must be positive)
//   - logger: Receives recovered callback panics (nil disables logging)
//
// Returns:
//   - *Repeating: Running timer; call Stop to release the goroutine
func NewRepeating(interval time.Duration, logger Logger) *Repeating {
	if logger == nil {
		logger = noopLogger{}
	}

	r := &Repeating{
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// AddCallback appends fn to the callbacks run on every tick.
func (r *Repeating) AddCallback(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.callbacks = append(r.callbacks, fn)
	r.mu.Unlock()
}

// Len returns the number of registered callbacks.
func (r *Repeating) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.callbacks)
}

// Interval returns the tick period.
func (r *Repeating) Interval() time.Duration {
	return r.interval
}

// Stop halts the timer and waits for an in-progress tick to finish.
// Safe to call more than once.
func (r *Repeating) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Repeating) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.fire()
		}
	}
}

// fire runs a snapshot of the callbacks so AddCallback never waits on a tick.
func (r *Repeating) fire() {
	r.mu.Lock()
	callbacks := make([]func(), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	for _, fn := range callbacks {
		r.call(fn)
	}
}

// call runs fn, recovering a panic so one callback cannot stop the timer.
func (r *Repeating) call(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("scheduled callback panic recovered", "panic", p)
		}
	}()
	fn()
}

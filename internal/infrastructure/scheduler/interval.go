package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"QuestionsScanner/internal/ports"
)

// ErrAlreadyRunning is returned when Run is called twice concurrently.
var ErrAlreadyRunning = errors.New("scheduler already running")

// IntervalDriver runs a job, then waits interval after it completes.
// The wait is interrupted by context cancellation or Stop; a running job is not.
type IntervalDriver struct {
	interval time.Duration
	after    func(time.Duration) <-chan time.Time

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*IntervalDriver)(nil)

// NewIntervalDriver builds a driver with a completion-relative period.
func NewIntervalDriver(interval time.Duration) *IntervalDriver {
	return &IntervalDriver{interval: interval, after: time.After}
}

// Run blocks until ctx is cancelled or Stop is called. It returns ctx.Err()
// on cancellation and nil after Stop.
func (d *IntervalDriver) Run(ctx context.Context, job func(ctx context.Context)) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	if d.stop != nil {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	stop := make(chan struct{})
	d.stop = stop
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.stop == stop {
			d.stop = nil
		}
		d.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		job(ctx)

		select {
		case <-d.after(d.interval):
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		}
	}
}

// Stop ends Run after the current job returns.
func (d *IntervalDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

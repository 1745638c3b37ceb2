package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalDriverRunsUntilCancelled(t *testing.T) {
	t.Parallel()

	ticks := make(chan time.Time)
	d := NewIntervalDriver(time.Hour)
	d.after = func(time.Duration) <-chan time.Time { return ticks }

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	ran := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, func(context.Context) {
			runs.Add(1)
			ran <- struct{}{}
		})
	}()

	<-ran
	ticks <- time.Now()
	<-ran
	ticks <- time.Now()
	<-ran
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after cancellation")
	}

	if got := runs.Load(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

func TestIntervalDriverStopInterruptsWait(t *testing.T) {
	t.Parallel()

	d := NewIntervalDriver(time.Hour)
	started := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- d.Run(context.Background(), func(context.Context) { started <- struct{}{} })
	}()

	<-started
	d.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after Stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func TestIntervalDriverRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	d := NewIntervalDriver(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 1)
	go func() {
		_ = d.Run(ctx, func(context.Context) { started <- struct{}{} })
	}()
	<-started

	if err := d.Run(ctx, func(context.Context) {}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

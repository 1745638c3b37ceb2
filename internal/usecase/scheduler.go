package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const defaultCleanupEvery = 24 * time.Hour

// SourceProcessor runs one pass over a source.
type SourceProcessor interface {
	ProcessSource(ctx context.Context, locator string) (int, error)
}

// SchedulerOptions controls tick pacing and housekeeping.
type SchedulerOptions struct {
	Interval    time.Duration
	SourceDelay time.Duration
	// Concurrency above 1 processes sources in parallel; 1 keeps them sequential.
	Concurrency   int
	RetentionDays int
	CleanupEvery  time.Duration
	MuteSummaries bool
}

// SchedulerDeps wires the loop to its collaborators.
type SchedulerDeps struct {
	Processor SourceProcessor
	Source    ports.SourceClient
	Notifier  ports.Notifier
	Store     ports.DeliveryStore
	Driver    ports.Scheduler
	Logger    *slog.Logger
	Options   SchedulerOptions
	Sleep     func(ctx context.Context, d time.Duration) error
	Now       func() time.Time
	NewRunID  func() string
}

// ValidationResult splits configured locators into usable and rejected ones.
type ValidationResult struct {
	Valid  []domain.Source
	Failed map[string]error
}

// Locators returns the locators of valid sources in configured order.
func (v ValidationResult) Locators() []string {
	out := make([]string, len(v.Valid))
	for i, src := range v.Valid {
		out[i] = src.Locator
	}
	return out
}

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	processor SourceProcessor
	source    ports.SourceClient
	notifier  ports.Notifier
	store     ports.DeliveryStore
	driver    ports.Scheduler
	logger    *slog.Logger
	opts      SchedulerOptions
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	newRunID  func() string

	mu          sync.Mutex
	iteration   int
	lastCleanup time.Time
}

// NewScheduler returns the monitoring loop.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	s := &Scheduler{
		processor: deps.Processor,
		source:    deps.Source,
		notifier:  deps.Notifier,
		store:     deps.Store,
		driver:    deps.Driver,
		logger:    deps.Logger,
		opts:      deps.Options,
		sleep:     deps.Sleep,
		now:       deps.Now,
		newRunID:  deps.NewRunID,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newRunID == nil {
		s.newRunID = func() string { return uuid.NewString() }
	}
	if s.opts.Concurrency < 1 {
		s.opts.Concurrency = 1
	}
	if s.opts.CleanupEvery <= 0 {
		s.opts.CleanupEvery = defaultCleanupEvery
	}
	return s
}

// ValidateSources resolves every locator once. Failures are excluded and
// reported; they are not retried until restart.
func (s *Scheduler) ValidateSources(ctx context.Context, locators []string) ValidationResult {
	res := ValidationResult{Failed: map[string]error{}}
	for _, locator := range locators {
		src, err := s.source.ResolveSource(ctx, locator)
		if err != nil {
			err = domain.NormalizeSourceError(err)
			res.Failed[locator] = err
			s.logger.Warn("source excluded", "locator", locator, "kind", domain.ErrorKind(err), "error", err)
			continue
		}
		src.Locator = locator
		res.Valid = append(res.Valid, src)
		s.logger.Info("source validated", "locator", locator, "source", src.ID, "title", src.DisplayName)
	}
	return res
}

// RunOnce executes one tick over the locators. Per-source failures are
// recorded in the result and never stop the tick.
func (s *Scheduler) RunOnce(ctx context.Context, locators []string) domain.IterationResult {
	s.mu.Lock()
	s.iteration++
	iteration := s.iteration
	s.mu.Unlock()

	runID := s.newRunID()
	logger := s.logger.With("run_id", runID, "iteration", iteration)
	ctx = WithLogger(ctx, logger)

	res := domain.NewIterationResult(iteration, runID, s.now())
	logger.Info("iteration started", "sources", len(locators))

	if s.opts.Concurrency > 1 {
		s.runParallel(ctx, locators, &res)
	} else {
		s.runSequential(ctx, locators, &res)
	}

	logger.Info("iteration completed", "sources", len(res.Delivered), "failed", len(res.Failed), "delivered", res.Total(),
		"duration", s.now().Sub(res.StartedAt).String())
	return res
}

func (s *Scheduler) runSequential(ctx context.Context, locators []string, res *domain.IterationResult) {
	for i, locator := range locators {
		if i > 0 {
			if err := s.sleep(ctx, s.opts.SourceDelay); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		n, err := s.processSafely(ctx, locator)
		record(res, locator, n, err)
	}
}

func (s *Scheduler) runParallel(ctx context.Context, locators []string, res *domain.IterationResult) {
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)

	for _, locator := range locators {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, err := s.processSafely(ctx, locator)
			mu.Lock()
			record(res, locator, n, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func record(res *domain.IterationResult, locator string, n int, err error) {
	res.Delivered[locator] = n
	if err != nil {
		res.Failed[locator] = domain.ErrorKind(err)
	}
}

// processSafely turns panics into errors so one source cannot abort a tick.
func (s *Scheduler) processSafely(ctx context.Context, locator string) (n int, err error) {
	logger := loggerFrom(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: panic: %v", domain.ErrConnectivity, r)
			logger.Error("source processing panicked", "locator", locator, "panic", r)
		}
	}()

	n, err = s.processor.ProcessSource(ctx, locator)
	if err != nil {
		if isCancellation(err) && ctx.Err() != nil {
			logger.Info("source processing interrupted", "locator", locator, "delivered", n)
			return n, nil
		}
		logger.Error("source processing failed", "locator", locator, "kind", domain.ErrorKind(err), "error", err)
		return 0, err
	}
	return n, nil
}

// RunForever validates sources, then runs ticks until ctx is cancelled.
// It returns an error only when no source survives validation.
func (s *Scheduler) RunForever(ctx context.Context, locators []string) error {
	validation := s.ValidateSources(ctx, locators)
	if len(validation.Valid) == 0 {
		return fmt.Errorf("%w: %d configured, all failed", domain.ErrNoValidSources, len(locators))
	}
	working := validation.Locators()

	s.logger.Info("monitoring started", "sources", len(working), "excluded", len(validation.Failed), "interval", s.opts.Interval.String())
	s.cleanup(ctx, true)
	s.notify(ctx, FormatStartNotice(len(working), s.opts.Interval, s.now()))

	err := s.driver.Run(ctx, func(ctx context.Context) {
		res := s.RunOnce(ctx, working)
		if !s.opts.MuteSummaries && ctx.Err() == nil {
			s.notify(ctx, FormatIterationSummary(res, s.now()))
		}
		s.cleanup(ctx, false)
		s.logger.Info("next iteration scheduled", "iteration", res.Iteration, "in", s.opts.Interval.String())
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduler stopped", "error", err)
	}
	s.logger.Info("monitoring stopped")
	return nil
}

// cleanup removes expired records at startup and then once per CleanupEvery.
func (s *Scheduler) cleanup(ctx context.Context, force bool) {
	if s.store == nil || s.opts.RetentionDays <= 0 || ctx.Err() != nil {
		return
	}

	now := s.now()
	s.mu.Lock()
	due := force || now.Sub(s.lastCleanup) >= s.opts.CleanupEvery
	if due {
		s.lastCleanup = now
	}
	s.mu.Unlock()
	if !due {
		return
	}

	deleted := s.store.CleanupOlderThan(ctx, s.opts.RetentionDays)
	s.logger.Info("retention cleanup done", "deleted", deleted, "retention_days", s.opts.RetentionDays)
}

func (s *Scheduler) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendText(ctx, text); err != nil {
		s.logger.Warn("service notification failed", "error", err, "preview", domain.Preview(strings.SplitN(text, "\n", 2)[0], 50))
	}
}

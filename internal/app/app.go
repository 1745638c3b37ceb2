package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"QuestionsScanner/internal/classifier"
	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/filter"
	"QuestionsScanner/internal/infrastructure/llm"
	"QuestionsScanner/internal/infrastructure/parser"
	"QuestionsScanner/internal/infrastructure/scheduler"
	"QuestionsScanner/internal/infrastructure/storage"
	"QuestionsScanner/internal/infrastructure/telegram"
	"QuestionsScanner/internal/logging"
	"QuestionsScanner/internal/ports"
	"QuestionsScanner/internal/source"
	"QuestionsScanner/internal/source/memory"
	"QuestionsScanner/internal/usecase"
)

// Options changes how a single invocation is wired.
type Options struct {
	// DryRun prints notifications to Out and keeps delivery records in memory.
	DryRun bool
	// Fixture is a YAML file served under the memory: locator scheme.
	Fixture string
	Out     io.Writer
	// HTTPClient is used by the live channel scanner; nil means a default client.
	HTTPClient *http.Client
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	sources   *source.Registry
	store     ports.DeliveryStore
	scheduler *usecase.Scheduler
}

// New builds every adapter named by cfg. The caller owns Close.
func New(ctx context.Context, cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	sources, err := NewSources(cfg, opts, baseLogger)
	if err != nil {
		return nil, err
	}

	backend, err := llm.New(cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier backend: %w", err)
	}
	gateway := classifier.New(backend, classifier.Options{
		AffirmativeToken:  cfg.Classifier.AffirmativeToken,
		Timeout:           cfg.Classifier.Timeout,
		RequestsPerSecond: cfg.Classifier.RequestsPerSecond,
		TopicMaxChars:     cfg.Classifier.TopicMaxChars,
	}, baseLogger.With("component", "classifier", "backend", backend.Name()))

	storageCfg := cfg.Storage
	var notifier ports.Notifier
	if opts.DryRun {
		storageCfg.Driver = "memory"
		notifier = telegram.NewWriterNotifier(opts.Out)
	} else {
		notifier = telegram.NewNotifier(telegram.Options{
			Token:      cfg.Bot.Token,
			ChatID:     cfg.Bot.ChatID,
			APIBaseURL: cfg.Bot.APIBaseURL,
			MaxLength:  cfg.Bot.MaxMessageLength,
		}, baseLogger.With("component", "notifier"))
	}

	store, err := OpenStore(ctx, storageCfg, baseLogger)
	if err != nil {
		return nil, err
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source: sources,
		Filter: filter.New(filter.Options{
			ExtraBoringPhrases: cfg.Filter.ExtraBoringPhrases,
			RejectAdvertising:  cfg.Monitor.RejectAdvertising,
		}, baseLogger.With("component", "filter")),
		Classifier: gateway,
		Notifier:   notifier,
		Store:      store,
		Logger:     baseLogger.With("component", "pipeline"),
		Options: usecase.PipelineOptions{
			MessagesLimit:  cfg.Monitor.MessagesLimit,
			TopicMaxInputs: cfg.Classifier.TopicMaxInputs,
			SendDelay:      cfg.Monitor.SendDelay,
			FallbackTopic:  classifier.FallbackTopic,
		},
	})

	loop := usecase.NewScheduler(usecase.SchedulerDeps{
		Processor: pipeline,
		Source:    sources,
		Notifier:  notifier,
		Store:     store,
		Driver:    scheduler.NewIntervalDriver(cfg.Monitor.Interval),
		Logger:    baseLogger.With("component", "scheduler"),
		Options: usecase.SchedulerOptions{
			Interval:      cfg.Monitor.Interval,
			SourceDelay:   cfg.Monitor.SourceDelay,
			Concurrency:   cfg.Monitor.Concurrency,
			RetentionDays: cfg.Storage.RetentionDays,
			MuteSummaries: cfg.Monitor.MuteSummaries,
		},
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		sources:   sources,
		store:     store,
		scheduler: loop,
	}, nil
}

// NewSources builds the locator registry: the live channel scanner by default
// and, when a fixture is given, the memory client under its scheme.
func NewSources(cfg config.Config, opts Options, logger *slog.Logger) (*source.Registry, error) {
	live := parser.NewChannelScanner(opts.HTTPClient, parser.ChannelOptions{
		BaseURL:           cfg.Telegram.BaseURL,
		UserAgent:         cfg.Telegram.UserAgent,
		Timeout:           cfg.Telegram.RequestTimeout,
		RequestsPerSecond: cfg.Telegram.RequestsPerSecond,
		CacheTTL:          cfg.Telegram.CacheTTL,
	}, logger.With("component", "source.telegram"))

	registry := source.NewRegistry(live, logger.With("component", "source"))
	if opts.Fixture != "" {
		fixture, err := memory.LoadFixture(opts.Fixture)
		if err != nil {
			return nil, err
		}
		registry.Register(memory.Scheme, fixture)
	}
	return registry, nil
}

// OpenStore opens the delivery store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ports.DeliveryStore, error) {
	logger = logger.With("component", "storage", "driver", cfg.Driver)

	var (
		store *storage.SQLStore
		err   error
	)
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		store, err = storage.OpenPostgres(ctx, cfg.DSN, logger)
	case "sqlite", "":
		store, err = storage.OpenSQLite(ctx, cfg.Path, logger)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", domain.ErrConfigurationInvalid, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Run validates the configured sources and monitors them until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.sources.Connect(ctx); err != nil {
		return fmt.Errorf("connect sources: %w", err)
	}
	a.logger.Info("application started", "sources", len(a.cfg.Monitor.Sources), "storage", a.cfg.Storage.Driver)
	return a.scheduler.RunForever(ctx, a.cfg.Monitor.Sources)
}

// Once runs a single tick over every configured source.
func (a *Application) Once(ctx context.Context) (domain.IterationResult, error) {
	if err := a.sources.Connect(ctx); err != nil {
		return domain.IterationResult{}, fmt.Errorf("connect sources: %w", err)
	}
	return a.scheduler.RunOnce(ctx, a.cfg.Monitor.Sources), nil
}

// CheckSources resolves every configured source without touching the
// classifier, the bot or the store.
func CheckSources(ctx context.Context, cfg config.Config, opts Options, logger *slog.Logger) (usecase.ValidationResult, error) {
	sources, err := NewSources(cfg, opts, logger)
	if err != nil {
		return usecase.ValidationResult{}, err
	}
	if err := sources.Connect(ctx); err != nil {
		return usecase.ValidationResult{}, fmt.Errorf("connect sources: %w", err)
	}
	defer func() {
		if err := sources.Disconnect(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("disconnect sources", "error", err)
		}
	}()

	validator := usecase.NewScheduler(usecase.SchedulerDeps{
		Source: sources,
		Logger: logger.With("component", "check"),
	})
	return validator.ValidateSources(ctx, cfg.Monitor.Sources), nil
}

// Close releases sources and the store.
func (a *Application) Close() error {
	ctx := context.Background()
	return errors.Join(a.sources.Disconnect(ctx), a.store.Close())
}

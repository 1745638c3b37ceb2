package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

// Registry routes locators to source clients by scheme prefix ("memory:chat").
// Locators without a registered scheme go to the fallback client.
type Registry struct {
	clients  map[string]ports.SourceClient
	fallback ports.SourceClient
	logger   *slog.Logger
}

var _ ports.SourceClient = (*Registry)(nil)

// NewRegistry builds a registry around the fallback client.
func NewRegistry(fallback ports.SourceClient, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		clients:  map[string]ports.SourceClient{},
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds or replaces the client for a scheme.
func (r *Registry) Register(scheme string, client ports.SourceClient) {
	r.clients[strings.ToLower(scheme)] = client
}

// Lookup returns the client responsible for the locator.
func (r *Registry) Lookup(locator string) (ports.SourceClient, error) {
	if scheme, _, ok := strings.Cut(locator, ":"); ok {
		if client, found := r.clients[strings.ToLower(scheme)]; found {
			return client, nil
		}
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("no source client for %q: %w", locator, domain.ErrConfigurationInvalid)
	}
	return r.fallback, nil
}

// Connect opens every distinct client.
func (r *Registry) Connect(ctx context.Context) error {
	var errs []error
	for _, client := range r.all() {
		if err := client.Connect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Disconnect closes every distinct client, attempting all of them.
func (r *Registry) Disconnect(ctx context.Context) error {
	var errs []error
	for _, client := range r.all() {
		if err := client.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResolveSource delegates and keeps the original locator for later routing.
func (r *Registry) ResolveSource(ctx context.Context, locator string) (domain.Source, error) {
	client, err := r.Lookup(locator)
	if err != nil {
		return domain.Source{}, err
	}
	src, err := client.ResolveSource(ctx, locator)
	if err != nil {
		return domain.Source{}, err
	}
	src.Locator = locator
	r.logger.Debug("source routed", "locator", locator, "source_id", src.ID)
	return src, nil
}

// StreamMessages routes by the locator the source was resolved from.
func (r *Registry) StreamMessages(ctx context.Context, src domain.Source, limit int) iter.Seq2[domain.Message, error] {
	client, err := r.Lookup(src.Locator)
	if err != nil {
		return func(yield func(domain.Message, error) bool) {
			yield(domain.Message{}, err)
		}
	}
	return client.StreamMessages(ctx, src, limit)
}

func (r *Registry) all() []ports.SourceClient {
	seen := map[ports.SourceClient]bool{}
	var out []ports.SourceClient
	if r.fallback != nil {
		seen[r.fallback] = true
		out = append(out, r.fallback)
	}
	for _, client := range r.clients {
		if !seen[client] {
			seen[client] = true
			out = append(out, client)
		}
	}
	return out
}

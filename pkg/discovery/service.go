package discovery

import (
	"context"
	"log/slog"
	"sync"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/relay"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source is the registry view used by the Service.
type Source interface {
	SettingsSource
	Providers() []config.Provider
	OverrideFor(name string) config.Override
	UpdateModels(name string, models []string)
	SetTestResult(name string, ok bool)
}

// Prober sends a test completion to a provider.
type Prober interface {
	Probe(ctx context.Context, p config.Provider, model, prompt string) relay.TestResult
}

// RefreshResult is the outcome of refreshing one provider.
type RefreshResult struct {
	Provider string `json:"provider"`
	Updated  bool   `json:"updated"`
	Count    int    `json:"count,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service refreshes model lists and test results in the registry.
type Service struct {
	src     Source
	fetcher *Fetcher
	prober  Prober
	logger  *slog.Logger

	flight singleflight.Group
	wg     sync.WaitGroup
}

// NewService creates a discovery service. prober may be nil, in which case
// RefreshAndTest only refreshes.
func NewService(src Source, fetcher *Fetcher, prober Prober, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		src:     src,
		fetcher: fetcher,
		prober:  prober,
		logger:  logger.With("component", "discovery.service"),
	}
}

// RefreshAll refreshes every provider, or only the one named filter when it
// is non-empty. The Note sentinel is reported as skipped. Results follow
// provider order.
func (s *Service) RefreshAll(ctx context.Context, filter string) []RefreshResult {
	var targets []config.Provider
	for _, p := range s.src.Providers() {
		if filter == "" || p.Name == filter {
			targets = append(targets, p)
		}
	}

	results := make([]RefreshResult, len(targets))
	var g errgroup.Group
	g.SetLimit(s.concurrency())

	for i, p := range targets {
		if p.Name == config.NoteProviderName {
			results[i] = RefreshResult{Provider: p.Name, Error: ReasonSkipped}
			continue
		}
		g.Go(func() error {
			results[i] = s.refreshOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// refreshOne fetches and applies the models of p. Concurrent refreshes of
// the same provider share one listing request.
func (s *Service) refreshOne(ctx context.Context, p config.Provider) RefreshResult {
	v, _, _ := s.flight.Do(p.Name, func() (any, error) {
		models, err := s.fetch(ctx, p)
		if err != nil {
			s.logger.InfoContext(ctx, "model refresh failed", "provider", p.Name, "error", err)
			return RefreshResult{Provider: p.Name, Error: err.Error()}, nil
		}
		s.src.UpdateModels(p.Name, models)
		s.logger.InfoContext(ctx, "models refreshed", "provider", p.Name, "count", len(models))
		return RefreshResult{Provider: p.Name, Updated: true, Count: len(models)}, nil
	})
	return v.(RefreshResult)
}

func (s *Service) fetch(ctx context.Context, p config.Provider) ([]string, error) {
	settings := s.src.Settings()
	return s.fetcher.Fetch(ctx, p, s.src.OverrideFor(p.Name), settings.TokenParam)
}

// RefreshInBackground starts RefreshAll for every provider on a detached
// goroutine.
func (s *Service) RefreshInBackground(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		results := s.RefreshAll(ctx, "")
		s.logger.InfoContext(ctx, "background model refresh completed", "providers", len(results))
	}()
}

// RefreshAndTest starts a detached task that refreshes each provider and
// probes its first model with prompt, recording test_result. A provider
// whose listing fails is recorded as failed. Probes target providers
// directly; the selection is never switched.
func (s *Service) RefreshAndTest(ctx context.Context, prompt string) {
	if prompt == "" {
		prompt = config.DefaultTestPrompt
	}
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		providers := s.src.Providers()
		s.logger.InfoContext(ctx, "refresh and test started", "providers", len(providers))

		var g errgroup.Group
		g.SetLimit(s.concurrency())
		for _, p := range providers {
			if p.Name == config.NoteProviderName {
				continue
			}
			g.Go(func() error {
				s.refreshAndTestOne(ctx, p, prompt)
				return nil
			})
		}
		_ = g.Wait()

		s.logger.InfoContext(ctx, "refresh and test completed")
	}()
}

func (s *Service) refreshAndTestOne(ctx context.Context, p config.Provider, prompt string) {
	res := s.refreshOne(ctx, p)
	if !res.Updated {
		s.logger.WarnContext(ctx, "refresh and test: listing failed", "provider", p.Name, "error", res.Error)
		s.src.SetTestResult(p.Name, false)
		return
	}
	if s.prober == nil {
		return
	}

	// Re-read the provider so the probe sees the refreshed model list
	models := s.modelsOf(p.Name)
	if len(models) == 0 {
		s.src.SetTestResult(p.Name, false)
		return
	}

	result := s.prober.Probe(ctx, p, models[0], prompt)
	s.src.SetTestResult(p.Name, result.Success)
	s.logger.InfoContext(ctx, "refresh and test: provider tested",
		"provider", p.Name,
		"model", models[0],
		"success", result.Success,
	)
}

func (s *Service) modelsOf(name string) []string {
	for _, p := range s.src.Providers() {
		if p.Name == name {
			return p.Models
		}
	}
	return nil
}

// Wait blocks until background tasks started by the service finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) concurrency() int {
	if n := s.src.Settings().Discovery.Concurrency; n > 0 {
		return n
	}
	return config.DefaultDiscoveryConcurrency
}

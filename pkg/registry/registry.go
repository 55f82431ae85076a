package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ccproxy-hq/ccproxy/pkg/config"
)

// Settings is a snapshot of the relay settings in effect.
type Settings struct {
	APIKey                 string
	TokenParam             string
	APITimeout             time.Duration
	ConnectTimeout         time.Duration
	FirstByteTimeout       time.Duration
	ErrorThreshold         int
	MaxBodyBytes           int64
	DiagnosticCaptureBytes int
	Discovery              config.DiscoveryConfig
}

// Registry is the shared provider state. It is safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	cfg     *config.Config
	initial *config.Config
	loader  config.Loader
	store   StateStore
	logger  *slog.Logger

	state     State
	providers []config.Provider
	errCounts map[string]int
}

// New creates a registry seeded from cfg. The stored state is loaded from
// store; a load failure is logged and the registry starts unselected-by-name
// (falling back to the first provider). loader is used by Reload and may be
// nil, in which case Reload fails.
func New(cfg *config.Config, loader config.Loader, store StateStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewMemoryStore(State{})
	}

	r := &Registry{
		cfg:       cfg.Clone(),
		initial:   cfg.Clone(),
		loader:    loader,
		store:     store,
		logger:    logger.With("component", "registry"),
		errCounts: make(map[string]int),
	}
	r.providers = cloneProviders(r.cfg.Providers)

	st, err := store.Load()
	if err != nil {
		r.logger.Warn("failed to load persisted state", "error", err)
	}
	r.state = st

	return r
}

// Providers returns a snapshot of the provider list.
func (r *Registry) Providers() []config.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneProviders(r.providers)
}

// Provider returns the named provider.
func (r *Registry) Provider(name string) (config.Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(name); i >= 0 {
		return r.providers[i].Clone(), true
	}
	return config.Provider{}, false
}

// Selected returns the provider requests are routed to.
func (r *Registry) Selected() (config.Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.selectedLocked()
	if p == nil {
		return config.Provider{}, false
	}
	return p.Clone(), true
}

func (r *Registry) selectedLocked() *config.Provider {
	if r.state.SelectionRequired {
		return nil
	}
	if name := r.state.SelectedProvider; name != "" {
		if i := r.indexLocked(name); i >= 0 {
			return &r.providers[i]
		}
	}
	if len(r.providers) > 0 {
		return &r.providers[0]
	}
	return nil
}

// SelectedName returns the stored selection name, which may be empty or
// refer to a provider that no longer exists.
func (r *Registry) SelectedName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.SelectedProvider
}

// Select makes name the selected provider and persists the choice. It
// returns false, changing nothing, if no such provider exists.
func (r *Registry) Select(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(name) < 0 {
		return false
	}
	r.state.SelectedProvider = name
	r.state.SelectionRequired = false
	r.persistLocked()

	r.logger.Info("provider selected", "provider", name)
	return true
}

// UpdateModels replaces the model list of the named provider. Unknown names
// are ignored.
func (r *Registry) UpdateModels(name string, models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(name); i >= 0 {
		r.providers[i].Models = append([]string(nil), models...)
	}
}

// SetTestResult records the outcome of a provider test. Unknown names are
// ignored.
func (r *Registry) SetTestResult(name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(name); i >= 0 {
		v := ok
		r.providers[i].TestResult = &v
	}
}

// Reload re-reads configuration through the loader and replaces the
// provider list, the override sets, and the relay settings. The selection is
// kept if its provider still exists; otherwise the first provider is
// selected. On failure nothing changes and the error is returned.
func (r *Registry) Reload() error {
	if r.loader == nil {
		return fmt.Errorf("reload: no configuration source")
	}

	// Read outside the lock; the source may be slow.
	cfg, err := r.loader()
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg = cfg.Clone()
	r.providers = cloneProviders(r.cfg.Providers)

	if name := r.state.SelectedProvider; name != "" && r.indexLocked(name) >= 0 {
		r.logger.Info("configuration reloaded", "providers", len(r.providers), "selected", name)
		return nil
	}
	if len(r.providers) > 0 {
		r.state.SelectedProvider = r.providers[0].Name
		r.persistLocked()
	}

	r.logger.Info("configuration reloaded", "providers", len(r.providers), "selected", r.state.SelectedProvider)
	return nil
}

// Reset restores the configuration captured at construction, clears the
// selection and the shared override, and requires an explicit Select before
// any provider is routed to again.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg = r.initial.Clone()
	r.providers = cloneProviders(r.cfg.Providers)
	r.state.SelectedProvider = ""
	r.state.SelectionRequired = true
	r.state.GlobalOverride = config.Override{}
	r.persistLocked()

	r.logger.Info("configuration reset", "providers", len(r.providers))
}

// OverrideFor returns the override applied to the named provider. There is
// one override shared by all providers, so name only documents the caller's
// intent.
func (r *Registry) OverrideFor(name string) config.Override {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.GlobalOverride.Clone()
}

// SetOverride replaces the shared override and persists it.
func (r *Registry) SetOverride(name string, o config.Override) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.GlobalOverride = o.Clone()
	r.persistLocked()

	r.logger.Info("override updated", "provider", name, "token_in", o.TokenIn)
}

// IncrementError bumps the consecutive error count for name and returns the
// new value.
func (r *Registry) IncrementError(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errCounts[name]++
	return r.errCounts[name]
}

// ResetError clears the consecutive error count for name.
func (r *Registry) ResetError(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errCounts[name] = 0
}

// ErrorCount returns the consecutive error count for name.
func (r *Registry) ErrorCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errCounts[name]
}

// ErrorCounts returns a copy of every non-zero error count.
func (r *Registry) ErrorCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int, len(r.errCounts))
	for k, v := range r.errCounts {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// ErrorThreshold returns the consecutive error count at which upstream
// errors are relayed instead of dropped.
func (r *Registry) ErrorThreshold() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Proxy.ErrorThreshold
}

// Settings returns the relay settings in effect.
func (r *Registry) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.cfg.Proxy
	return Settings{
		APIKey:                 p.APIKey,
		TokenParam:             p.TokenParam,
		APITimeout:             p.APITimeout,
		ConnectTimeout:         p.ConnectTimeout,
		FirstByteTimeout:       p.FirstByteTimeout,
		ErrorThreshold:         p.ErrorThreshold,
		MaxBodyBytes:           p.MaxBodyBytes,
		DiagnosticCaptureBytes: p.DiagnosticCaptureBytes,
		Discovery:              r.cfg.Discovery,
	}
}

// HeaderOverride returns a copy of the named header set, or nil.
func (r *Registry) HeaderOverride(name string) map[string]string {
	if name == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.cfg.HeaderOverrides[name]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

// RequestOverride returns a copy of the named body field set, or nil.
func (r *Registry) RequestOverride(name string) map[string]any {
	if name == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return config.CloneMap(r.cfg.RequestOverrides[name])
}

// HeaderOverrideNames returns the configured header set names, sorted.
func (r *Registry) HeaderOverrideNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.cfg.HeaderOverrides)
}

// RequestOverrideNames returns the configured request set names, sorted.
func (r *Registry) RequestOverrideNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.cfg.RequestOverrides)
}

// EnvModels returns the env_models map for the UI.
func (r *Registry) EnvModels() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return config.CloneMap(r.cfg.EnvModels)
}

func (r *Registry) indexLocked(name string) int {
	for i := range r.providers {
		if r.providers[i].Name == name {
			return i
		}
	}
	return -1
}

// persistLocked saves state. Failures are logged, never returned.
func (r *Registry) persistLocked() {
	if err := r.store.Save(r.state.clone()); err != nil {
		r.logger.Warn("failed to persist state", "error", err)
	}
}

func cloneProviders(in []config.Provider) []config.Provider {
	out := make([]config.Provider, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

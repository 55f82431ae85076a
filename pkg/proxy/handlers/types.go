package handlers

import (
	"context"
	"net/http"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/discovery"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/relay"
)

// SelectionSource is the registry view used on the relay path.
type SelectionSource interface {
	Selected() (config.Provider, bool)
	Settings() registry.Settings
	OverrideFor(name string) config.Override
}

// ControlSource is the registry view used by the control plane.
type ControlSource interface {
	SelectionSource
	Providers() []config.Provider
	Provider(name string) (config.Provider, bool)
	Select(name string) bool
	Reload() error
	Reset()
	SetOverride(name string, o config.Override)
	SetTestResult(name string, ok bool)
	HeaderOverrideNames() []string
	RequestOverrideNames() []string
	EnvModels() map[string]any
	ErrorCounts() map[string]int
}

// Forwarder sends a client request upstream.
type Forwarder interface {
	Forward(ctx context.Context, req relay.Request) (*http.Response, error)
}

// Discoverer refreshes model lists.
type Discoverer interface {
	RefreshAll(ctx context.Context, filter string) []discovery.RefreshResult
	RefreshAndTest(ctx context.Context, prompt string)
}

// Prober tests a provider with a minimal completion.
type Prober interface {
	Probe(ctx context.Context, p config.Provider, model, prompt string) relay.TestResult
}

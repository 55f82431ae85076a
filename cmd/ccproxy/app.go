package main

import (
	"log/slog"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/discovery"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/relay"
	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
)

// components are the runtime pieces shared by run and models.
type components struct {
	registry  *registry.Registry
	forwarder *relay.Forwarder
	relay     *relay.Relay
	discovery *discovery.Service
}

func newComponents(cfg *config.Config, store registry.StateStore, logger *slog.Logger, m *metrics.Collector, t *tracing.Tracer) *components {
	reg := registry.New(cfg, config.FileLoader(cfgFile), store, logger)

	opts := relay.Options{Logger: logger, Metrics: m, Tracer: t}
	fwd := relay.NewForwarder(reg, opts)
	fetcher := discovery.NewFetcher(reg, discovery.Options{Logger: logger, Metrics: m, Tracer: t})

	return &components{
		registry:  reg,
		forwarder: fwd,
		relay:     relay.NewRelay(reg, opts),
		discovery: discovery.NewService(reg, fetcher, fwd, logger),
	}
}

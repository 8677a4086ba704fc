package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ahrav/clinicalextract/internal/metrics"
)

// startMetrics serves /metrics on the configured address until ctx is done.
// It returns nil when no address is configured.
func (a *app) startMetrics(ctx context.Context) *metrics.Metrics {
	if a.cfg.MetricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	go func() {
		if err := metrics.Serve(ctx, a.cfg.MetricsAddr, reg, a.logger); err != nil {
			a.logger.Error("Metrics endpoint failed", "addr", a.cfg.MetricsAddr, "error", err)
		}
	}()
	return m
}

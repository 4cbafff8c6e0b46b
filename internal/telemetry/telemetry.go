// Package telemetry exposes the dashboard's own health as Prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll kinds and outcomes used as label values.
const (
	KindLatest = "latest"
	KindTotal  = "total"

	OutcomeOK      = "ok"
	OutcomeNoData  = "nodata"
	OutcomeError   = "error"
	OutcomeRestart = "restart"
)

var (
	// PollsTotal counts polls by kind and outcome.
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddmatrix_polls_total",
			Help: "Total number of metric polls",
		},
		[]string{"kind", "outcome"},
	)

	// RateLimitBackoffs counts backoff sleeps taken because quota ran low.
	RateLimitBackoffs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddmatrix_rate_limit_backoffs_total",
			Help: "Total number of rate-limit backoff sleeps",
		},
	)

	// RestartsTotal counts supervisor restarts by reason.
	RestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddmatrix_restarts_total",
			Help: "Total number of dashboard restarts",
		},
		[]string{"reason"},
	)

	// MetricValue is the last raw value shown for each metric.
	MetricValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddmatrix_metric_value",
			Help: "Last value displayed for a metric",
		},
		[]string{"metric"},
	)

	// QueryDuration is the metrics API round-trip time.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ddmatrix_query_duration_seconds",
			Help:    "Metrics API query latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// RateLimitRemaining is the last reported remaining API quota.
	RateLimitRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddmatrix_rate_limit_remaining",
			Help: "Remaining metrics API requests in the current period",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

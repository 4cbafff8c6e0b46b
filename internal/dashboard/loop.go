// Package dashboard drives the metric cycle and restarts it from scratch
// whenever a component gives up.
package dashboard

import (
	"context"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
)

// Poller shows one metric at a time.
type Poller interface {
	PollLatest(ctx context.Context, spec config.MetricSpec) error
	PollTotal(ctx context.Context, spec config.TotalledMetricSpec) error
}

// ConnectionChecker brings the link back if it dropped.
type ConnectionChecker interface {
	CheckConnection(ctx context.Context) error
}

// Loop cycles through every configured metric forever.
type Loop struct {
	metrics *config.MetricsConfig
	poller  Poller
	conn    ConnectionChecker
	log     logger.Logger
	heap    func() uint64
}

// NewLoop creates a loop over metrics.
func NewLoop(metrics *config.MetricsConfig, p Poller, conn ConnectionChecker, log logger.Logger) *Loop {
	if log == nil {
		log = logger.Noop()
	}
	return &Loop{
		metrics: metrics,
		poller:  p,
		conn:    conn,
		log:     log,
		heap:    heapInUse,
	}
}

// Run repeats Pass until it fails or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Pass(ctx); err != nil {
			return err
		}
	}
}

// Pass polls every single-value metric, then every totalled metric, in file
// order, then checks the link. Any error stops the pass.
func (l *Loop) Pass(ctx context.Context) error {
	for _, m := range l.metrics.Metrics {
		if err := l.poller.PollLatest(ctx, m); err != nil {
			return err
		}
	}
	for _, m := range l.metrics.TotalledMetrics {
		if err := l.poller.PollTotal(ctx, m); err != nil {
			return err
		}
	}

	l.log.Debug("Heap in use: %s", humanize.Bytes(l.heap()))

	return l.conn.CheckConnection(ctx)
}

func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

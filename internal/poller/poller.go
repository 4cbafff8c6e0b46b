// Package poller runs one metric query, renders the result on the panel, and
// paces itself so the value stays on screen before the next poll.
package poller

import (
	"context"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/datadog"
	"github.com/rileyhilliard/ddmatrix/internal/display"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	"github.com/rileyhilliard/ddmatrix/internal/telemetry"
	"github.com/rileyhilliard/ddmatrix/internal/util"
)

// Querier runs a metric query over a time window.
type Querier interface {
	Query(ctx context.Context, query string, from, to time.Time) (*datadog.Response, error)
}

var _ Querier = (*datadog.Client)(nil)

// Config controls windows and pacing.
type Config struct {
	Interval         time.Duration // lookback for single-value metrics
	Delay            time.Duration // dwell time after every poll
	RateLimitFloor   int
	RateLimitBackoff time.Duration
}

// ConfigFrom takes the polling section of the settings.
func ConfigFrom(p config.PollingConfig) Config {
	return Config{
		Interval:         p.Interval,
		Delay:            p.Delay,
		RateLimitFloor:   p.RateLimitFloor,
		RateLimitBackoff: p.RateLimitBackoff,
	}
}

// Poller queries metrics and writes them to a surface, one at a time.
type Poller struct {
	api     Querier
	surface display.Surface
	cfg     Config
	now     func() time.Time
	sleep   util.SleepFunc
	log     logger.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithNow sets the clock used to compute query windows.
func WithNow(fn func() time.Time) Option {
	return func(p *Poller) { p.now = fn }
}

// WithSleep replaces the sleep used for dwell and backoff.
func WithSleep(fn util.SleepFunc) Option {
	return func(p *Poller) { p.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) { p.log = l }
}

func New(api Querier, surface display.Surface, cfg Config, opts ...Option) *Poller {
	p := &Poller{
		api:     api,
		surface: surface,
		cfg:     cfg,
		now:     time.Now,
		sleep:   util.Sleep,
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollLatest shows the most recent value of spec's query. Ordinary failures
// and missing data skip the update; a socket fault returns a restart
// request. The dwell delay is always slept unless restarting.
func (p *Poller) PollLatest(ctx context.Context, spec config.MetricSpec) error {
	to := p.now()
	from := to.Add(-p.cfg.Interval)

	resp, err := p.query(ctx, spec.Query, from, to)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		if errors.IsCode(err, errors.ErrSocket) {
			p.log.Error("Restarting due to socket failures: %v", err)
			telemetry.PollsTotal.WithLabelValues(telemetry.KindLatest, telemetry.OutcomeRestart).Inc()
			return errors.NewRestart(err, "", 0)
		}
		p.log.Warn("Query %s failed: %v", spec.Query, err)
		telemetry.PollsTotal.WithLabelValues(telemetry.KindLatest, telemetry.OutcomeError).Inc()
	} else if value, err := LastPoint(resp); err != nil {
		p.log.Info("No data for %s, skipping", spec.MetricName)
		telemetry.PollsTotal.WithLabelValues(telemetry.KindLatest, telemetry.OutcomeNoData).Inc()
	} else {
		p.log.Debug("Last data point: %v", value)
		text := spec.PrefixString + FormatLatest(spec.Query, value, spec.RoundingPlaces) + spec.TrailingString
		p.show(spec.MetricName, text, value, spec.HighThreshold)
		telemetry.PollsTotal.WithLabelValues(telemetry.KindLatest, telemetry.OutcomeOK).Inc()
	}

	return p.finish(ctx, resp)
}

// PollTotal shows the sum of spec's query over its own window. Every
// failure skips the update; it never asks for a restart.
func (p *Poller) PollTotal(ctx context.Context, spec config.TotalledMetricSpec) error {
	to := p.now()
	from := to.Add(-spec.Window())

	resp, err := p.query(ctx, spec.Query, from, to)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		p.log.Warn("Query %s failed: %v", spec.Query, err)
		telemetry.PollsTotal.WithLabelValues(telemetry.KindTotal, telemetry.OutcomeError).Inc()
	} else if sum, err := SumPoints(resp); err != nil {
		p.log.Info("No data for %s, skipping", spec.MetricName)
		telemetry.PollsTotal.WithLabelValues(telemetry.KindTotal, telemetry.OutcomeNoData).Inc()
	} else {
		p.log.Debug("Total: %v", sum)
		p.show(spec.MetricName, FormatTotal(sum)+spec.TrailingString, sum, spec.HighThreshold)
		telemetry.PollsTotal.WithLabelValues(telemetry.KindTotal, telemetry.OutcomeOK).Inc()
	}

	return p.finish(ctx, resp)
}

func (p *Poller) query(ctx context.Context, query string, from, to time.Time) (*datadog.Response, error) {
	p.log.Debug("Using time range in request: %d to %d", from.Unix(), to.Unix())
	p.log.Debug("Running query: %s", query)

	start := time.Now()
	resp, err := p.api.Query(ctx, query, from, to)
	telemetry.QueryDuration.Observe(time.Since(start).Seconds())
	return resp, err
}

func (p *Poller) show(title, text string, value, threshold float64) {
	c := ValueColor(value, threshold)
	if c == display.Alert {
		p.log.Info("%s over threshold: %v > %v", title, value, threshold)
	}
	p.surface.SetTitle(title, display.Label)
	p.surface.SetValue(text, c)
	telemetry.MetricValue.WithLabelValues(title).Set(value)
}

// finish applies the rate-limit backoff, if the reply asked for one, and
// then the dwell delay.
func (p *Poller) finish(ctx context.Context, resp *datadog.Response) error {
	if resp != nil && resp.RateLimit.Known {
		rl := resp.RateLimit
		telemetry.RateLimitRemaining.Set(float64(rl.Remaining))
		if rl.Below(p.cfg.RateLimitFloor) {
			p.log.Warn("Approaching rate limit, backing off for %s. Remaining: %d out of %d, period is %ds",
				p.cfg.RateLimitBackoff, rl.Remaining, rl.Limit, rl.Period)
			telemetry.RateLimitBackoffs.Inc()
			if err := p.sleep(ctx, p.cfg.RateLimitBackoff); err != nil {
				return err
			}
		}
	}
	return p.sleep(ctx, p.cfg.Delay)
}

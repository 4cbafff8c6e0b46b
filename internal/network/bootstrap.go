package network

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/display"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	"github.com/rileyhilliard/ddmatrix/internal/util"
)

// Status texts shown on the panel during bring-up.
const (
	TitleConnecting = "Connecting"
	TitleWiFiError  = "WiFi Error"
	TitleStarting   = "Starting"
	ValueToWiFi     = "ToWiFi"
	ValueWiFiOK     = "WiFiOK"
	ValueGetTime    = "GetTime"
	ValueTimeError  = "TimeERR"
)

// Config holds the bootstrapper's settings.
type Config struct {
	SSID           string
	Password       string
	ProbeHost      string
	RetryPause     time.Duration
	TimeErrorDelay time.Duration
	SanityEpoch    time.Time // any time before this is a clock fault
}

// Bootstrapper owns the link state and walks it from Disconnected to
// TimeValid.
type Bootstrapper struct {
	link    Link
	time    TimeSource
	surface display.Surface
	cfg     Config
	log     logger.Logger
	sleep   util.SleepFunc
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithSleep replaces the sleep used between retries.
func WithSleep(fn util.SleepFunc) Option {
	return func(b *Bootstrapper) { b.sleep = fn }
}

// WithNow replaces the host clock used to compute the boot offset.
func WithNow(fn func() time.Time) Option {
	return func(b *Bootstrapper) { b.now = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bootstrapper) { b.log = l }
}

func NewBootstrapper(link Link, ts TimeSource, surface display.Surface, cfg Config, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		link:    link,
		time:    ts,
		surface: surface,
		cfg:     cfg,
		log:     logger.Noop(),
		sleep:   util.Sleep,
		now:     time.Now,
		state:   Disconnected,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bootstrapper) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != s {
		b.log.Debug("state %s -> %s", b.state, s)
	}
	b.state = s
}

// Connect associates with the access point, retrying forever. Once up it
// logs the link details and checks that DNS works; a failed lookup asks
// for a restart.
func (b *Bootstrapper) Connect(ctx context.Context) error {
	b.setState(Connecting)
	b.log.Info("Connecting to WiFi..")

	for !b.link.Connected(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.surface.SetTitle(TitleConnecting, display.Connecting)
		b.surface.SetValue(ValueToWiFi, display.Neutral)

		if err := b.link.Associate(ctx, b.cfg.SSID, b.cfg.Password); err != nil {
			b.surface.SetTitle(TitleWiFiError, display.Connecting)
			b.log.Warn("Could not connect to WiFi, retrying: %v", err)
			if err := b.sleep(ctx, b.cfg.RetryPause); err != nil {
				return err
			}
		}
	}

	b.setState(Connected)
	b.surface.SetTitle(TitleStarting, display.Connecting)
	b.surface.SetValue(ValueWiFiOK, display.Neutral)

	info := b.link.Info(ctx)
	b.log.Info("Connected to %q, RSSI: %d, IP: %s", info.SSID, info.RSSI, info.IP)

	if b.cfg.ProbeHost == "" {
		return nil
	}
	addr, err := b.link.Lookup(ctx, b.cfg.ProbeHost)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.setState(Disconnected)
		b.log.Error("Network error: %v", err)
		return errors.NewRestart(err, "", b.cfg.RetryPause)
	}
	b.log.Info("IP lookup %s: %s", b.cfg.ProbeHost, addr)
	return nil
}

// FetchTime asks the time source until it returns a usable time. Any
// failure, or a time before the sanity epoch, asks for a restart.
func (b *Bootstrapper) FetchTime(ctx context.Context) (Clock, error) {
	b.setState(TimeUnknown)
	b.surface.SetValue(ValueGetTime, display.Neutral)

	for {
		t, ok, err := b.time.Query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Clock{}, ctx.Err()
			}
			b.log.Error("Unable to get time, restarting: %v", err)
			return Clock{}, errors.NewRestart(
				errors.WrapWithCode(err, errors.ErrTime, "Time source failed", ""),
				"", 0)
		}
		if !ok {
			b.log.Info("Setting time..")
			if err := b.sleep(ctx, b.cfg.RetryPause); err != nil {
				return Clock{}, err
			}
			continue
		}

		b.log.Info("Got time: %d", t.Unix())
		if t.Before(b.cfg.SanityEpoch) {
			b.log.Error("Time sanity check failed (%s is before %s), restarting",
				t.UTC().Format(time.RFC3339), b.cfg.SanityEpoch.UTC().Format(time.RFC3339))
			b.surface.SetValue(ValueTimeError, display.Neutral)
			return Clock{}, errors.NewRestart(
				errors.New(errors.ErrTime, "Time sanity check failed",
					"The time source returned a time before "+b.cfg.SanityEpoch.UTC().Format(time.RFC3339)),
				ValueTimeError, b.cfg.TimeErrorDelay)
		}

		b.setState(TimeValid)
		return Clock{Offset: t.Sub(b.now())}, nil
	}
}

// CheckConnection reconnects if the link has dropped.
func (b *Bootstrapper) CheckConnection(ctx context.Context) error {
	if b.link.Connected(ctx) {
		return nil
	}
	b.setState(Disconnected)
	b.log.Warn("Wifi disconnected, attempting to reconnect..")
	if err := b.Connect(ctx); err != nil {
		return err
	}
	b.setState(TimeValid)
	return nil
}

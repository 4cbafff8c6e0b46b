package dashboard

import (
	"context"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/datadog"
	"github.com/rileyhilliard/ddmatrix/internal/display"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	"github.com/rileyhilliard/ddmatrix/internal/network"
	"github.com/rileyhilliard/ddmatrix/internal/poller"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/rileyhilliard/ddmatrix/internal/telemetry"
	"github.com/rileyhilliard/ddmatrix/internal/util"
)

// ValueRequestSocket is shown while the API client is being set up.
const ValueRequestSocket = "ReqSock"

// API is a metrics API connection owned by a single boot.
type API interface {
	poller.Querier
	Close()
}

// Deps are the long-lived collaborators the supervisor boots from. Every
// boot builds fresh state (link state machine, API client, clock, metrics)
// on top of them.
type Deps struct {
	Surface display.Surface
	Secrets []secrets.Store
	Link    network.Link
	Time    network.TimeSource

	// Dial opens the metrics API. Defaults to a datadog.Client built from
	// the api settings.
	Dial func(s secrets.Secrets) API

	Sleep  util.SleepFunc
	Logger func(component string) logger.Logger
}

// Supervisor boots the dashboard, runs its loop, and boots again whenever a
// restart is requested.
type Supervisor struct {
	settings *config.Settings
	deps     Deps
	log      logger.Logger
	boots    int
}

// NewSupervisor fills unset Deps with production defaults.
func NewSupervisor(settings *config.Settings, deps Deps) *Supervisor {
	if deps.Sleep == nil {
		deps.Sleep = util.Sleep
	}
	if deps.Logger == nil {
		deps.Logger = logger.New
	}
	if deps.Dial == nil {
		deps.Dial = func(s secrets.Secrets) API {
			return datadog.NewClient(s.APIKey, s.AppKey,
				datadog.WithBaseURL(settings.API.BaseURL),
				datadog.WithTimeout(settings.API.Timeout),
				datadog.WithLogger(deps.Logger("api")),
			)
		}
	}
	return &Supervisor{
		settings: settings,
		deps:     deps,
		log:      deps.Logger("supervisor"),
	}
}

// Boots returns how many times the dashboard has been booted.
func (s *Supervisor) Boots() int {
	return s.boots
}

// Run boots and reboots until ctx is done or a fatal error occurs. It
// returns nil on cancellation; HARDWARE, SECRETS and any error that is not
// a restart request are returned as-is.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.boot(ctx)
		if ctx.Err() != nil {
			return nil
		}

		restart, ok := errors.AsRestart(err)
		if !ok {
			if err != nil {
				s.log.Error("Fatal: %v", err)
			}
			return err
		}

		s.log.Warn("Restarting (%s): %v", restart.Reason(), restart.Err)
		telemetry.RestartsTotal.WithLabelValues(restart.Reason()).Inc()
		if restart.Label != "" {
			s.deps.Surface.SetValue(restart.Label, display.Neutral)
		}
		if err := s.deps.Sleep(ctx, restart.Delay); err != nil {
			return nil
		}
	}
}

// boot runs one full lifetime: reveal, credentials, link, API, time,
// metrics, then the loop. It only returns with an error.
func (s *Supervisor) boot(ctx context.Context) error {
	s.boots++
	surface := s.deps.Surface

	if err := surface.PlayBootAnimation(ctx); err != nil {
		return err
	}

	creds, err := secrets.Load(s.deps.Secrets...)
	if err != nil {
		return err
	}

	link := network.NewBootstrapper(s.deps.Link, s.deps.Time, surface, s.networkConfig(creds),
		network.WithSleep(s.deps.Sleep),
		network.WithLogger(s.deps.Logger("net")),
	)
	if err := link.Connect(ctx); err != nil {
		return err
	}

	surface.SetValue(ValueRequestSocket, display.Neutral)
	api := s.deps.Dial(creds)
	defer api.Close()

	clock, err := link.FetchTime(ctx)
	if err != nil {
		return err
	}

	metrics, err := config.LoadMetrics(s.settings.MetricsFile)
	if err != nil {
		s.log.Error("Error in metrics file, retrying in %s: %v", s.settings.Recovery.ConfigCooldown, err)
		return errors.NewRestart(err, "", s.settings.Recovery.ConfigCooldown)
	}
	for _, m := range metrics.Metrics {
		s.log.Info("Loaded metric: %s", m.MetricName)
	}
	for _, m := range metrics.TotalledMetrics {
		s.log.Info("Loaded totalled metric: %s", m.MetricName)
	}
	s.log.Info("Cycling through %s", util.Count(metrics.Len(), "metric", "metrics"))

	p := poller.New(api, surface, poller.ConfigFrom(s.settings.Polling),
		poller.WithNow(clock.Now),
		poller.WithSleep(s.deps.Sleep),
		poller.WithLogger(s.deps.Logger("poll")),
	)

	return NewLoop(metrics, p, link, s.deps.Logger("loop")).Run(ctx)
}

func (s *Supervisor) networkConfig(creds secrets.Secrets) network.Config {
	return network.Config{
		SSID:           creds.SSID,
		Password:       creds.Password,
		ProbeHost:      s.settings.Network.ProbeHost,
		RetryPause:     s.settings.Network.RetryPause,
		TimeErrorDelay: s.settings.Recovery.TimeErrorDelay,
		SanityEpoch:    time.Unix(s.settings.Recovery.TimeSanityEpoch, 0),
	}
}

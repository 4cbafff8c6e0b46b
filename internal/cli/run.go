package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/dashboard"
	"github.com/rileyhilliard/ddmatrix/internal/display"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
	"github.com/rileyhilliard/ddmatrix/internal/network"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/rileyhilliard/ddmatrix/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// DefaultLogFile receives logs while the terminal shows the panel.
const DefaultLogFile = "ddmatrix.log"

// RunOptions holds options for the run command.
type RunOptions struct {
	Files       FileFlags
	Headless    bool   // log panel text instead of drawing it
	TrueColor   bool   // force 24-bit colour in the terminal panel
	NoKeyring   bool   // read secrets from the file only
	MetricsAddr string // telemetry listen address; empty disables it
	LogFile     string // log destination while the terminal panel is up
}

var runOpts RunOptions

// runCmd runs the dashboard until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dashboard",
	Long: `Boot the dashboard and cycle through every metric in metrics.json until
interrupted.

On a terminal the panel is drawn with half-block characters and logs go to
ddmatrix.log; press q to quit. Elsewhere, or with --headless, panel text
changes are logged instead.

Examples:
  ddmatrix run
  ddmatrix run --headless --metrics-addr :9464
  ddmatrix run --metrics ~/dashboards/prod.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd.Context(), runOpts)
	},
}

func init() {
	AddFileFlags(runCmd, &runOpts.Files)
	runCmd.Flags().BoolVar(&runOpts.Headless, "headless", false, "log panel text instead of drawing it")
	runCmd.Flags().BoolVar(&runOpts.TrueColor, "truecolor", false, "force 24-bit colour for the terminal panel")
	runCmd.Flags().BoolVar(&runOpts.NoKeyring, "no-keyring", false, "read secrets from the secrets file only")
	runCmd.Flags().StringVar(&runOpts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g., :9464)")
	runCmd.Flags().StringVar(&runOpts.LogFile, "log-file", DefaultLogFile, "log file used while the terminal panel is shown")

	rootCmd.AddCommand(runCmd)
}

func runDashboard(parent context.Context, opts RunOptions) error {
	if err := ValidateListenAddr(opts.MetricsAddr); err != nil {
		return err
	}

	settings, err := loadSettings(cfgFile, opts.Files, verbose)
	if err != nil {
		return err
	}

	interactive := !opts.Headless && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && (settings.Log.Output == "" || settings.Log.Output == "stderr") {
		settings.Log.Output = opts.LogFile
	}
	if err := logger.Init(settings.Log); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to set up logging",
			"Check log.level and log.output in settings")
	}
	defer logger.Close()
	log := logger.New("cli")

	panel, err := display.NewPanel(display.Options{
		Width:    settings.Display.Width,
		Height:   settings.Display.Height,
		Logo:     settings.Display.Logo,
		BootStep: settings.Display.BootStep,
		Log:      logger.New("display"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var sink display.Sink = display.NewLogSink(logger.New("display"))
	if interactive {
		if opts.TrueColor {
			lipgloss.SetColorProfile(termenv.TrueColor)
		}
		ts := display.NewTerminalSink(cancel, tea.WithAltScreen())
		sink = ts
		g.Go(func() error {
			return ignoreCanceled(ts.Run(gctx))
		})
	}

	g.Go(func() error {
		return ignoreCanceled(panel.AutoRefresh(gctx, sink, settings.Display.FPS))
	})

	if opts.MetricsAddr != "" {
		g.Go(func() error {
			log.Info("Serving telemetry on %s/metrics", opts.MetricsAddr)
			return telemetry.Serve(gctx, opts.MetricsAddr)
		})
	}

	g.Go(func() error {
		defer cancel()
		return newSupervisor(settings, panel, opts.NoKeyring).Run(gctx)
	})

	return g.Wait()
}

// secretStores lists where credentials are looked up, file first.
func secretStores(settings *config.Settings, noKeyring bool) []secrets.Store {
	stores := []secrets.Store{secrets.NewFileStore(settings.SecretsFile)}
	if !noKeyring {
		stores = append(stores, secrets.NewKeyringStore(secrets.ServiceName))
	}
	return stores
}

func newSupervisor(settings *config.Settings, surface display.Surface, noKeyring bool) *dashboard.Supervisor {
	link := network.NewHostLink(settings.Network.Interface)
	link.ProbeTimeout = settings.Network.ProbeTimeout

	return dashboard.NewSupervisor(settings, dashboard.Deps{
		Surface: surface,
		Secrets: secretStores(settings, noKeyring),
		Link:    link,
		Time:    network.NewNTPSource(settings.Network.NTPServer, settings.Network.ProbeTimeout),
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

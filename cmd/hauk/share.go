package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/amonks/hauk/handshake"
	"github.com/amonks/hauk/internal/config"
	"github.com/amonks/hauk/internal/logger"
	"github.com/amonks/hauk/internal/sharetui"
	"github.com/amonks/hauk/internal/state"
	"github.com/amonks/hauk/internal/ui"
	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/protocol"
	"github.com/amonks/hauk/push"
	"github.com/amonks/hauk/share"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share your location until the share expires or you stop it",
	Args:  cobra.NoArgs,
	RunE:  runShare,
}

var (
	shareServer       string
	sharePassword     string
	shareDuration     int
	shareInterval     int
	shareRemember     bool
	shareLatitude     float64
	shareLongitude    float64
	shareAccuracy     float64
	shareLocationFile string
	shareNoTUI        bool
	shareOnce         bool
)

func init() {
	rootCmd.AddCommand(shareCmd)
	addShareFlags(shareCmd)
}

func addShareFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	setFlagAliases(flags, map[string]string{
		"dur": "duration",
		"int": "interval",
		"pwd": "password",
	})
	flags.StringVarP(&shareServer, "server", "s", "", "Hauk server URL (default: last used)")
	flags.StringVarP(&sharePassword, "password", "p", "", "Server password")
	flags.IntVarP(&shareDuration, "duration", "d", 0, "Share duration in minutes (default: last used)")
	flags.IntVarP(&shareInterval, "interval", "i", 0, "Seconds between location updates (default: last used)")
	flags.BoolVar(&shareRemember, "remember", false, "Remember the password for later shares")
	flags.Float64Var(&shareLatitude, "lat", 0, "Share a fixed latitude")
	flags.Float64Var(&shareLongitude, "lon", 0, "Share a fixed longitude")
	flags.Float64Var(&shareAccuracy, "accuracy", 0, "Accuracy of the fixed position in meters")
	flags.StringVar(&shareLocationFile, "location-file", "", "Read positions from a JSON file kept current by a GPS daemon")
	flags.BoolVar(&shareNoTUI, "no-tui", false, "Print plain progress lines instead of the interactive view")
	flags.BoolVar(&shareOnce, "once", false, "Stop after the first location update is delivered")
}

func runShare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	prefs, err := store.LoadPreferences()
	if err != nil {
		return err
	}

	req, err := buildStartRequest(cmd, prefs)
	if err != nil {
		return err
	}
	provider, err := locationProvider(cmd, cfg)
	if err != nil {
		return err
	}
	timeout, err := cfg.HTTP.TimeoutDuration()
	if err != nil {
		return err
	}

	useTUI := !shareNoTUI && !shareOnce && ui.IsTerminal(os.Stdout) && ui.IsTerminal(os.Stdin)
	log, err := newLogger(cfg, useTUI)
	if err != nil {
		return err
	}

	client := protocol.NewClient(protocol.Options{Timeout: timeout, UserAgent: userAgent()})
	transport := push.NewHTTPTransport(client, push.Options{Endpoint: cfg.Push.PushEndpoint()})

	var observer share.Observer
	var bridge *sharetui.Bridge
	var console *consoleObserver
	if useTUI {
		bridge = sharetui.NewBridge()
		observer = bridge
	} else {
		console = newConsoleObserver(cmd.OutOrStdout(), req.BaseURL())
		observer = console
	}

	controller, err := share.New(share.Options{
		Handshaker: handshake.NewClient(client),
		TransportFor: func(baseURL string) push.Transport {
			return transport.WithBaseURL(baseURL)
		},
		Location:    provider,
		Preferences: store,
		Observer:    observer,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer controller.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopSignals := handleShareSignals(ctx, cancel, controller, log)
	defer stopSignals()

	if useTUI {
		result, err := sharetui.Run(ctx, bridge, sharetui.Options{
			Server: req.BaseURL(),
			Start:  func() error { return controller.StartSharing(req) },
			Stop:   controller.UserRequestedStop,
		})
		if err != nil {
			return err
		}
		if result.Failed() && result.FailureKind != share.KindCanceled {
			return withExitCode(2, "%s: %s", result.FailureKind.Title(), result.FailureMessage)
		}
		return nil
	}

	if shareOnce {
		console.onFirstData = func() {
			go func() { _ = controller.UserRequestedStop() }()
		}
	}
	if err := controller.StartSharing(req); err != nil {
		return err
	}
	select {
	case <-console.done:
	case <-ctx.Done():
	}
	if failure := console.failure(); failure != "" {
		return withExitCode(2, "%s", failure)
	}
	return nil
}

// buildStartRequest merges flags over the stored preferences.
func buildStartRequest(cmd *cobra.Command, prefs state.Preferences) (share.StartRequest, error) {
	req := share.StartRequest{
		ServerURL:        prefs.Server,
		Password:         prefs.Password,
		DurationMinutes:  prefs.Duration,
		IntervalSeconds:  prefs.Interval,
		RememberPassword: prefs.RememberPassword,
	}
	if cmd.Flags().Changed("server") {
		req.ServerURL = shareServer
	}
	if cmd.Flags().Changed("duration") {
		req.DurationMinutes = shareDuration
	}
	if cmd.Flags().Changed("interval") {
		req.IntervalSeconds = shareInterval
	}
	if cmd.Flags().Changed("remember") {
		req.RememberPassword = shareRemember
	}

	switch {
	case cmd.Flags().Changed("password"):
		req.Password = sharePassword
	case req.Password == "" && ui.IsTerminal(os.Stdin):
		password, err := promptPassword(cmd.ErrOrStderr())
		if err != nil {
			return share.StartRequest{}, err
		}
		req.Password = password
	}

	if err := req.Validate(); err != nil {
		return share.StartRequest{}, err
	}
	return req, nil
}

func promptPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Password (leave empty if none): ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

// locationProvider picks the position source. Flags beat config; with
// neither, the provider is disabled and the share fails its precondition
// check.
func locationProvider(cmd *cobra.Command, cfg *config.Config) (location.Provider, error) {
	if cmd.Flags().Changed("location-file") {
		return location.NewFileProvider(shareLocationFile), nil
	}
	if hasChangedFlags(cmd, "lat", "lon") {
		if !hasChangedFlags(cmd, "lat") || !hasChangedFlags(cmd, "lon") {
			return nil, fmt.Errorf("--lat and --lon must be given together")
		}
		return location.NewStatic(shareLatitude, shareLongitude, shareAccuracy), nil
	}

	switch cfg.Location.Source {
	case config.LocationSourceFile:
		return location.NewFileProvider(cfg.Location.File), nil
	default:
		if cfg.Location.CoordinatesSet() {
			return location.NewStatic(cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.Accuracy), nil
		}
		return &location.Static{}, nil
	}
}

// handleShareSignals stops the share on interrupt. Termination and hangup
// tear the share down without reporting it.
func handleShareSignals(ctx context.Context, cancel context.CancelFunc, controller *share.Controller, log *logger.Logger) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				log.WithField("signal", sig.String()).Info("received signal")
				if sig == os.Interrupt {
					if err := controller.UserRequestedStop(); err != nil {
						cancel()
					}
					continue
				}
				controller.HostTornDown()
				cancel()
				return
			}
		}
	}()
	return func() { signal.Stop(signals) }
}

// consoleObserver prints one line per lifecycle event.
type consoleObserver struct {
	out         io.Writer
	server      string
	done        chan struct{}
	onFirstData func()

	mu        sync.Mutex
	finished  bool
	lastError string
	message   string
}

func newConsoleObserver(out io.Writer, server string) *consoleObserver {
	return &consoleObserver{out: out, server: server, done: make(chan struct{})}
}

func (o *consoleObserver) OnHandshakeStarted() {
	fmt.Fprintf(o.out, "Connecting to %s\n", o.server)
}

func (o *consoleObserver) OnHandshakeFailed(kind share.ErrorKind, message string) {
	if kind == share.KindCanceled {
		fmt.Fprintln(o.out, message)
	} else {
		o.mu.Lock()
		o.message = fmt.Sprintf("%s: %s", kind.Title(), message)
		o.mu.Unlock()
	}
	o.finish()
}

func (o *consoleObserver) OnSessionActive(viewLink string) {
	fmt.Fprintf(o.out, "Sharing at %s\n", viewLink)
	fmt.Fprintln(o.out, ui.StatusWaiting.Text())
}

func (o *consoleObserver) OnFirstDataReceived() {
	fmt.Fprintln(o.out, ui.StatusSharing.Text())
	if o.onFirstData != nil {
		o.onFirstData()
	}
}

func (o *consoleObserver) OnRemainingTimeChanged(seconds int) {
	if seconds > 0 && seconds%60 == 0 {
		fmt.Fprintf(o.out, "%s remaining\n", ui.FormatRemaining(seconds))
	}
}

func (o *consoleObserver) OnPushResult(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.lastError = ""
		return
	}
	message := share.FailureMessage(err)
	if message != o.lastError {
		fmt.Fprintf(o.out, "Update failed: %s\n", message)
	}
	o.lastError = message
}

func (o *consoleObserver) OnStopped(reason share.StopReason) {
	if reason == share.StopExpired {
		fmt.Fprintln(o.out, "Share expired")
	} else {
		fmt.Fprintln(o.out, "Stopped sharing")
	}
	o.finish()
}

func (o *consoleObserver) failure() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.message
}

func (o *consoleObserver) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return
	}
	o.finished = true
	close(o.done)
}

var _ share.PushObserver = (*consoleObserver)(nil)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hpyer/easysms/internal/cli/ui"
	"github.com/hpyer/easysms/internal/config"
	"github.com/hpyer/easysms/internal/easysms"
	"github.com/hpyer/easysms/internal/observability"
	"github.com/hpyer/easysms/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the easysms HTTP API",
	Long: `Start the HTTP API in the foreground. Stop it with Ctrl-C or SIGTERM;
in-flight sends finish before the process exits.`,
	Example: `easysms serve
easysms serve --port 9000 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (default: server.port)")
	serveCmd.Flags().String("host", "", "Listen address (default: server.host)")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
}

// hintedError carries suggestions for ui.FormatError.
type hintedError struct {
	err   error
	hints []string
}

func (e *hintedError) Error() string { return e.err.Error() }
func (e *hintedError) Unwrap() error { return e.err }

// Hints returns the suggestions attached to err, if any.
func Hints(err error) []string {
	var h *hintedError
	if errors.As(err, &h) {
		return h.hints
	}
	return nil
}

func serveFlags(cmd *cobra.Command) map[string]string {
	flags := map[string]string{}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		flags["port"] = strconv.Itoa(port)
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		flags["host"] = host
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		flags["log-level"] = level
	}
	return flags
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, serveFlags(cmd))
	if err != nil {
		return &hintedError{
			err:   fmt.Errorf("loading config: %w", err),
			hints: []string{"easysms config init", "easysms config"},
		}
	}

	if portInUse(cfg.Address()) {
		return &hintedError{
			err: fmt.Errorf("port %d is already in use", cfg.Server.Port),
			hints: []string{
				fmt.Sprintf("easysms serve --port %d", cfg.Server.Port+1),
				"easysms status",
			},
		}
	}

	base := observability.InitLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logBuffer := server.NewLogBuffer(base.Handler(), server.DefaultLogBufferSize)
	logger := slog.New(logBuffer)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: buildVersion,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	svc := easysms.New(cfg, easysms.WithLogger(logger))
	srv, err := server.New(cfg, logger, svc)
	if err != nil {
		return err
	}
	srv.SetLogBuffer(logBuffer)

	ready := make(chan struct{})
	served := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(served)
		return srv.StartWithReady(ready)
	})
	g.Go(func() error {
		select {
		case <-ready:
			printBanner(cfg, svc)
		case <-gctx.Done():
		}
		<-gctx.Done()

		select {
		case <-ready:
		case <-served:
			return nil
		}
		// The signal context is done; shutdown gets a fresh deadline.
		err := srv.Shutdown(context.Background())
		if tpErr := tp.Shutdown(context.Background()); tpErr != nil {
			logger.Warn("tracer shutdown failed", "error", tpErr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// portInUse reports whether addr cannot be bound.
func portInUse(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

func printBanner(cfg *config.Config, svc *easysms.EasySMS) {
	printBannerTo(os.Stderr, cfg, svc.Available(), colorEnabled())
}

// printBannerTo writes the startup banner. Extracted for testing.
func printBannerTo(w io.Writer, cfg *config.Config, available []string, useColor bool) {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	apiURL := fmt.Sprintf("http://%s/api", net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)))

	// Pad labels before colorizing so ANSI codes don't break alignment.
	padLabel := func(label string) string {
		return bold(fmt.Sprintf("%-10s", label), useColor)
	}
	onOff := func(on bool, detail string) string {
		if !on {
			return dim("off", useColor)
		}
		return detail
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", ui.BrandEmoji,
		boldCyan("easysms v"+bannerVersion(buildVersion), useColor))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", padLabel("API:"), cyan(apiURL, useColor))
	fmt.Fprintf(w, "  %s %s\n", padLabel("Gateways:"), strings.Join(available, ", "))
	fmt.Fprintf(w, "  %s %s\n", padLabel("Default:"),
		fmt.Sprintf("%s (%s)", strings.Join(cfg.Default.Gateways, ", "), cfg.Default.Strategy))
	fmt.Fprintf(w, "  %s %s\n", padLabel("Auth:"), onOff(cfg.Server.JWTSecret != "", "bearer token"))
	fmt.Fprintf(w, "  %s %s\n", padLabel("Metrics:"), onOff(cfg.Telemetry.Metrics, "/metrics"))
	fmt.Fprintf(w, "  %s %s\n", padLabel("Tracing:"), onOff(cfg.Telemetry.OTLPEndpoint != "", cfg.Telemetry.OTLPEndpoint))

	if cfg.Server.JWTSecret == "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", yellow(
			"WARNING: server.jwt_secret is empty. Anyone who can reach this port can send SMS.", useColor))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", dim("Try: curl -X POST "+apiURL+"/sms/send -d '{\"to\":\"13188888888\",\"content\":\"hi\"}' -H 'Content-Type: application/json'", useColor))
	fmt.Fprintln(w)
}

// newCLILogger returns a logger for one-shot commands. Gateway attempt logs
// are only shown with --verbose.
func newCLILogger(cfg *config.Config, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return observability.InitLogger(observability.LogConfig{Level: "debug", Format: cfg.Logging.Format})
}

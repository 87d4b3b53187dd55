package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/exporter"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd runs headless sampling behind a Prometheus endpoint
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sample in the background and expose Prometheus metrics",
	Long: `Run the sampling loop without the dashboard and serve the results over HTTP:

  GET /metrics   Prometheus metrics
  GET /healthz   200 once the first sample is in, 503 before
  GET /snapshot  the current snapshot as JSON

The address comes from --metrics-addr or exporter.address in the config.

Examples:
  amdtop serve --metrics-addr :9101
  AMDTOP_EXPORTER_ADDRESS=127.0.0.1:9101 amdtop serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveCommand(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "metrics-addr", "", "listen address, e.g. :9101 (overrides exporter.address)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Exporter.Address = serveAddr
	}
	if cfg.Exporter.Address == "" {
		return errors.New(errors.ErrConfig,
			"No metrics address configured",
			"Pass --metrics-addr :9101 or set exporter.address in amdtop.yaml.")
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	engine.Start(ctx)

	log := logger.NewEnvLogger("[serve]")
	for _, a := range engine.Advisories() {
		log.Info("%s", a)
	}

	srv := exporter.NewServer(cfg.Exporter.Address, engine, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sampled := make(chan error, 1)
	go func() { sampled <- engine.Run(ctx) }()

	// A listen failure also stops sampling.
	err = srv.ListenAndServe(ctx)
	cancel()
	if runErr := <-sampled; err == nil {
		err = runErr
	}
	return err
}

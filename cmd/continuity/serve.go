package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/continuity"
	httpAdapter "github.com/aretw0/continuity/pkg/adapters/http"
	flow "github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the restart experiment over HTTP",
	Long: `Exposes the restart experiment as a JSON API: GET /experiment, GET /experiment/graph,
POST /runs, GET /runs/{id}, GET /runs/{id}/graph and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		cfg := demoConfigFrom(cmd)
		factory := func() (*flow.Experiment, error) { return buildDemo(d, cfg) }
		if _, err := factory(); err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		maxRuns, _ := cmd.Flags().GetInt("max-runs")
		srv := &httpAdapter.Server{
			Factory:  factory,
			Gatherer: reg,
			Logger:   d.logger,
			MaxRuns:  maxRuns,
		}
		srv.Engine = continuity.NewEngine(
			continuity.WithLogger(d.logger),
			continuity.WithMetrics(observability.NewMetrics(reg)),
			continuity.WithLifecycleHooks(srv.Hooks()),
		)
		handler := httpAdapter.NewHandler(srv)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		port, _ := cmd.Flags().GetString("port")
		d.logger.Info("Starting Continuity Server", "address", ":"+port)
		if err := httpAdapter.ListenAndServe(ctx, ":"+port, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		d.logger.Info("Continuity Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDemoFlags(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Int("max-runs", httpAdapter.DefaultMaxRuns, "Number of finished runs kept for GET /runs/{id}")
}

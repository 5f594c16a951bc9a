package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/creditgate/internal/api"
	"github.com/wonny/creditgate/internal/api/handlers"
	"github.com/wonny/creditgate/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API and the websocket run feed.

Endpoints:
  GET  /health                        - Health check
  GET  /api/system/state              - Current system state (?refresh=true)
  POST /api/scans                     - Run a scan {tickers, date, save}
  GET  /api/scans/latest              - Most recent stored run
  GET  /api/scans/{date}              - Stored run for a date
  GET  /api/scans/{date}/alerts       - Alerts raised on a date
  GET  /api/tickers/{ticker}/history  - One ticker's results (?days=90)
  GET  /api/stats/qualification       - Qualification rate per ticker (?days=90)
  GET  /api/stats/states              - Daily system state (?days=90)
  GET  /api/strikes/{ticker}          - Safe strike zone (?strike=180)
  GET  /api/jobs                      - Scheduled jobs (--with-scheduler)
  POST /api/jobs/{name}/run           - Trigger a job (--with-scheduler)
  GET  /metrics                       - Prometheus metrics
  GET  /ws/runs                       - Completed scans as they happen

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API port (default PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the daily scan scheduler")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	h := api.Handlers{
		Screening: handlers.NewScreeningHandler(a.scan, a.log),
		History:   handlers.NewHistoryHandler(a.history, a.log),
		Stream:    a.stream,
	}
	if a.cfg.MetricsEnabled {
		h.Metrics = a.metrics
	}

	var sched *scheduler.Scheduler
	if apiWithScheduler {
		if sched, err = newScheduler(a); err != nil {
			return err
		}
		h.Jobs = handlers.NewJobsHandler(sched, a.log)
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if sched != nil {
		fmt.Printf("   Scheduler: %s\n", a.cfg.Screen.Schedule)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

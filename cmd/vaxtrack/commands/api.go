package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vaxtrack/internal/api"
	"github.com/wonny/vaxtrack/internal/api/handlers"
	"github.com/wonny/vaxtrack/internal/report"
	"github.com/wonny/vaxtrack/internal/scheduler"
	"github.com/wonny/vaxtrack/internal/scheduler/jobs"
	"github.com/wonny/vaxtrack/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read API server",
	Long: `Starts the REST API server.

Reports are built on request from the in-memory dataset and cached in Redis
when REDIS_ENABLED is set.

Endpoints:
  GET  /health                        - Health check
  GET  /api/reports                   - Report definitions
  GET  /api/reports/{id}              - Report summary
  GET  /api/vaccination/top?n=&mode=  - Top-N ranking
  GET  /api/vaccination/latest/{iso}  - Latest record of a country
  GET  /api/runs/latest               - Last persisted run (needs DATABASE_URL)

Example:
  go run ./cmd/vaxtrack api
  go run ./cmd/vaxtrack api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiOffline       bool
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
	apiCmd.Flags().BoolVar(&apiOffline, "offline", false, "never download, use the cached dataset only")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run the refresh job in-process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== vaxtrack API Server ===")

	// 1. Config, logger, backends
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":  a.cfg.Port,
		"env":   a.cfg.Env,
		"redis": a.redis.Enabled(),
		"db":    a.db != nil,
	}).Info("Initializing API server")

	// 2. Dataset, kept in memory for a day
	source := report.NewCachedSource(a.source(apiOffline), redis.TTLDaily)

	// 3. Builder
	builder, err := a.builder()
	if err != nil {
		return err
	}

	// 4. Handlers
	cache := a.cache()
	h := api.Handlers{
		Report:      handlers.NewReportHandler(source, builder, cache, a.log),
		Vaccination: handlers.NewVaccinationHandler(source, builder, cache, a.log),
	}
	if repo := a.repository(); repo != nil {
		h.Run = handlers.NewRunHandler(repo, a.log)
	}

	// 5. Optional in-process refresh
	if apiWithScheduler {
		sched := scheduler.New(a.log)
		runner := a.runner(source, builder, "")
		if err := sched.AddJob(jobs.NewRefreshJob(runner, cache, a.cfg.Refresh.Schedule, a.log,
			jobs.WithRetry(a.cfg.Refresh.Retries, a.cfg.Refresh.RetryDelay))); err != nil {
			return fmt.Errorf("register refresh job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Router and server
	router := api.NewRouter(h, a.log)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

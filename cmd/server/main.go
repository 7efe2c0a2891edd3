package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/config"
	"github.com/teamops/teamops/internal/server"
	"github.com/teamops/teamops/internal/service"
	"github.com/teamops/teamops/pkg/logger"
)

var (
	configPath string
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"

	workerLive bool
)

var rootCmd = &cobra.Command{
	Use:   "teamops",
	Short: "TeamOps - Scheduled content delivery engine",
	Long:  `TeamOps stores generated content jobs and dispatches them to social platforms on schedule.`,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("TeamOps %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run one dispatch pass and exit",
	RunE:  runWorker,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	workerCmd.Flags().BoolVar(&workerLive, "live", false, "publish for real instead of dry-run")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(workerCmd)
}

func runServer(*cobra.Command, []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting TeamOps server", zap.String("version", version))

	// Create server
	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

// runWorker claims and dispatches whatever is due right now, then exits.
// Useful from cron or for manual catch-up when the server loop is down.
func runWorker(*cobra.Command, []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if workerLive {
		cfg.Dispatcher.LivePublish = true
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	registry := service.NewPublisherRegistry(&cfg.Publisher, appLogger)
	store := service.NewScheduleStore(db, registry)
	throttle := service.NewThrottlePolicy(store, appLogger)
	dispatcher := service.NewDispatcher(&cfg.Dispatcher, store, registry, throttle, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	processed := dispatcher.RunCycle(ctx)
	appLogger.Info("Worker pass complete",
		zap.Int("processed", processed),
		zap.Bool("live", cfg.Dispatcher.LivePublish))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/events"
	"github.com/go-johnnyhe/jobs/internal/filter"
	"github.com/go-johnnyhe/jobs/internal/health"
	"github.com/go-johnnyhe/jobs/internal/notify"
	"github.com/go-johnnyhe/jobs/internal/scheduler"
	"github.com/go-johnnyhe/jobs/internal/sources"
	"github.com/go-johnnyhe/jobs/internal/storage"
	"github.com/go-johnnyhe/jobs/internal/telemetry"
	"github.com/go-johnnyhe/jobs/internal/tracker"
	"github.com/go-johnnyhe/jobs/shared/httpclient"
	"github.com/go-johnnyhe/jobs/shared/logger"
	"github.com/go-johnnyhe/jobs/shared/postgresql"
)

// defaultMetricsAddr is where watch mode exposes /metrics when no
// -metrics-addr was given.
const defaultMetricsAddr = ":9090"

type cliFlags struct {
	configPath  string
	notify      bool
	dryRun      bool
	testWebhook bool
	stats       bool
	listRecent  int
	pruneDays   int
	skipGitHub  bool
	skipCareers bool
	watch       bool
	metricsAddr string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("TRACKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/tracker-service/config.yaml"
	}

	var flags cliFlags
	flag.StringVar(&flags.configPath, "config", defaultConfigPath, "Path to configuration file")
	flag.BoolVar(&flags.notify, "notify", false, "Send Discord notifications for new postings and source alerts")
	flag.BoolVar(&flags.dryRun, "dry-run", false, "Format notification payloads without transmitting anything")
	flag.BoolVar(&flags.testWebhook, "test-webhook", false, "Send a test message to the configured webhook and exit")
	flag.BoolVar(&flags.stats, "stats", false, "Print dedup store statistics and exit")
	flag.IntVar(&flags.listRecent, "list-recent", 0, "Print the N most recently seen postings and exit")
	flag.IntVar(&flags.pruneDays, "prune-days", 0, "Delete seen postings older than N days and exit")
	flag.BoolVar(&flags.skipGitHub, "skip-github", false, "Skip the GitHub listing source this run")
	flag.BoolVar(&flags.skipCareers, "skip-careers", false, "Skip the career page source this run")
	flag.BoolVar(&flags.watch, "watch", false, "Keep running on the configured interval instead of a single pass")
	flag.StringVar(&flags.metricsAddr, "metrics-addr", "", "Address to expose Prometheus /metrics on (watch mode defaults to "+defaultMetricsAddr+")")
	flag.Parse()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting tracker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	notifier := notify.NewDiscord(cfg.Discord.WebhookURL, appLogger)

	if flags.testWebhook {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if !notifier.SendTest(ctx) {
			return fmt.Errorf("webhook test failed")
		}
		fmt.Println("Webhook test message sent")
		return nil
	}

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	store := storage.New(dbClient.GetDB(), appLogger)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.RunMigrations(migrateCtx)
	cancelMigrate()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if done, err := runMaintenanceCommand(store, flags); done {
		return err
	}

	jobFilter, err := filter.New(cfg.FilterRules())
	if err != nil {
		return fmt.Errorf("failed to build filter: %w", err)
	}

	adapters := buildAdapters(cfg, jobFilter, flags, appLogger)
	if len(adapters) == 0 {
		return fmt.Errorf("all sources are skipped, nothing to do")
	}

	var publisher tracker.EventPublisher
	if cfg.Events.Enabled {
		p, err := events.NewPublisher(cfg.Events, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		defer p.Close()
		publisher = p
	}

	runner := tracker.NewRunner(
		adapters,
		store,
		health.NewTracker(store, appLogger),
		notifier,
		publisher,
		cfg.Tracker.AlertThresholds,
		appLogger,
	)

	opts := tracker.Options{
		Notify: flags.notify,
		DryRun: flags.dryRun,
	}

	if flags.watch {
		addr := flags.metricsAddr
		if addr == "" {
			addr = defaultMetricsAddr
		}
		return runWatch(runner, opts, cfg.Tracker.WatchIntervalHours, addr, appLogger)
	}

	if flags.metricsAddr != "" {
		metricsSrv := startMetricsServer(flags.metricsAddr, appLogger)
		defer metricsSrv.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := runner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("Fetched %d posting(s), %d new, %d notified\n", result.Fetched, result.New, result.Notified)
	return nil
}

// runMaintenanceCommand handles the store inspection flags. It reports
// done=true when one of them was requested, whether or not it succeeded.
func runMaintenanceCommand(store *storage.Storage, flags cliFlags) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case flags.stats:
		stats, err := store.GetStats(ctx)
		if err != nil {
			return true, fmt.Errorf("failed to load stats: %w", err)
		}
		fmt.Printf("Total jobs seen:      %d\n", stats.TotalJobs)
		fmt.Printf("Notified:             %d\n", stats.NotifiedJobs)
		fmt.Printf("Pending notification: %d\n", stats.PendingNotification)
		for company, count := range stats.ByCompany {
			fmt.Printf("  %-20s %d\n", company, count)
		}
		return true, nil

	case flags.listRecent > 0:
		jobs, err := store.GetRecent(ctx, flags.listRecent)
		if err != nil {
			return true, fmt.Errorf("failed to load recent postings: %w", err)
		}
		for _, job := range jobs {
			marker := " "
			if job.Notified {
				marker = "*"
			}
			fmt.Printf("%s %s  %s - %s\n    %s\n", marker, job.FirstSeen.Format("2006-01-02 15:04"), job.Company, job.Title, job.URL)
		}
		fmt.Printf("%d posting(s)\n", len(jobs))
		return true, nil

	case flags.pruneDays > 0:
		deleted, err := store.PruneOlderThan(ctx, flags.pruneDays)
		if err != nil {
			return true, fmt.Errorf("failed to prune old postings: %w", err)
		}
		fmt.Printf("Pruned %d posting(s) older than %d day(s)\n", deleted, flags.pruneDays)
		return true, nil
	}

	return false, nil
}

func buildAdapters(cfg *config.Config, jobFilter *filter.Filter, flags cliFlags, appLogger *slog.Logger) []sources.Adapter {
	client := httpclient.New(httpclient.Config{
		Timeout:       cfg.HTTP.Timeout,
		RetryAttempts: cfg.HTTP.RetryAttempts,
		RetryMinWait:  cfg.HTTP.RetryMinWait,
		RetryMaxWait:  cfg.HTTP.RetryMaxWait,
	}, appLogger)

	var adapters []sources.Adapter
	if !flags.skipGitHub {
		adapters = append(adapters, sources.NewGitHubTracker(
			cfg.Sources.GitHubRepos,
			cfg.Sources.TargetCompanies,
			cfg.Filter.PreferredLocations,
			client,
			cfg.HTTP.UserAgent,
			appLogger,
		))
	}
	if !flags.skipCareers {
		adapters = append(adapters, sources.NewCareerScraper(
			cfg.Sources.Companies,
			jobFilter,
			client,
			cfg.HTTP.UserAgent,
			appLogger,
		))
	}
	return adapters
}

// runWatch keeps the tracker running on the configured cron interval until
// the process receives SIGINT or SIGTERM. The run counters are exposed on
// metricsAddr for the lifetime of the loop.
func runWatch(runner *tracker.Runner, opts tracker.Options, intervalHours int, metricsAddr string, appLogger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsSrv := startMetricsServer(metricsAddr, appLogger)

	sched := scheduler.New(runner, opts, intervalHours, appLogger)
	if err := sched.Start(ctx); err != nil {
		metricsSrv.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down watch mode...")
	cancel()
	sched.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Metrics server shutdown failed", slog.Any("error", err))
	}

	appLogger.Info("Tracker shutdown complete")
	return nil
}

// startMetricsServer serves /metrics in the background. Failure to bind is
// logged but never takes the tracker down with it.
func startMetricsServer(addr string, appLogger *slog.Logger) *http.Server {
	srv := telemetry.NewServer(addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Metrics server failed", slog.Any("error", err))
		}
	}()
	appLogger.Info("Metrics exposed", slog.String("address", addr))
	return srv
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

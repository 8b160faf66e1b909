// Command rosterctl generates shift schedules from a YAML run config, or
// serves the same scheduling engine over HTTP backed by Postgres and
// Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/wisbric/shiftroster/internal/authtoken"
	"github.com/wisbric/shiftroster/internal/cache"
	"github.com/wisbric/shiftroster/internal/config"
	"github.com/wisbric/shiftroster/internal/engine"
	"github.com/wisbric/shiftroster/internal/httpserver"
	"github.com/wisbric/shiftroster/internal/notify"
	"github.com/wisbric/shiftroster/internal/platform"
	"github.com/wisbric/shiftroster/internal/store"
	"github.com/wisbric/shiftroster/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: rosterctl <generate|serve> [flags]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q: expected generate or serve\n", os.Args[1])
		os.Exit(2)
	}

	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the run config YAML file")
	strict := fs.Bool("strict", false, "exit non-zero when final coverage falls below min_coverage_threshold")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("-config is required")
	}

	logger := telemetry.NewLogger(*logFormat, *logLevel)

	rc, err := config.LoadRunConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading run config: %w", err)
	}

	cfg, err := rc.Normalize(logger)
	if err != nil {
		return fmt.Errorf("normalizing run config: %w", err)
	}

	result, err := engine.NewScheduler(cfg, logger).Run()
	if err != nil {
		var configErr *engine.ConfigError
		var dataErr *engine.DataError
		switch {
		case errors.As(err, &configErr), errors.As(err, &dataErr):
			return fmt.Errorf("invalid run config: %w", err)
		default:
			return fmt.Errorf("generating schedule: %w", err)
		}
	}

	for _, w := range result.Warnings {
		logger.Warn(w)
	}

	printSchedule(result.State)
	printStatistics(result.Statistics)

	if *strict && result.Statistics.Coverage < cfg.MinCoverageThreshold {
		return fmt.Errorf("coverage %.2f%% is below the required threshold %.2f%%",
			result.Statistics.Coverage*100, cfg.MinCoverageThreshold*100)
	}
	return nil
}

func printSchedule(s *engine.State) {
	dates := make([]time.Time, 0, len(s.Schedule))
	for d := range s.Schedule {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		slots := s.Schedule[d]
		assigned := make([]string, len(slots))
		for i, w := range slots {
			if w == "" {
				assigned[i] = "-"
			} else {
				assigned[i] = w
			}
		}
		fmt.Printf("%s  %v\n", d.Format("2006-01-02"), assigned)
	}
}

func printStatistics(stats engine.Statistics) {
	fmt.Printf("\ncoverage: %.2f%%  balance_score: %.3f\n", stats.Coverage*100, stats.BalanceScore)
	if len(stats.Violations) > 0 {
		fmt.Println("violations:")
		kinds := make([]string, 0, len(stats.Violations))
		for k := range stats.Violations {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("  %s: %d\n", k, stats.Violations[k])
		}
	}
	fmt.Println("worker reports:")
	for _, r := range stats.WorkerReports {
		fmt.Printf("  %-12s total=%-3d target=%-3d deviation=%-3d weekends=%d\n",
			r.WorkerID, r.Total, r.Target, r.Deviation, r.WeekendCount)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	svcCfg, err := config.LoadServiceConfig()
	if err != nil {
		return fmt.Errorf("loading service config: %w", err)
	}

	logger := telemetry.NewLogger(svcCfg.LogFormat, svcCfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting rosterctl", "listen", svcCfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, svcCfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, svcCfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(svcCfg.DatabaseURL, svcCfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewRegistry()

	st := store.NewStore(db)

	runLockTTL, err := time.ParseDuration(svcCfg.RunLockTTL)
	if err != nil {
		return fmt.Errorf("parsing run lock TTL %q: %w", svcCfg.RunLockTTL, err)
	}
	runCache := cache.NewRunCache(rdb, runLockTTL, runLockTTL)

	notifier := notify.NewNotifier(svcCfg.SlackBotToken, svcCfg.SlackAlertChannel, logger)
	if notifier.IsEnabled() {
		logger.Info("slack notifications enabled", "channel", svcCfg.SlackAlertChannel)
	} else {
		logger.Info("slack notifications disabled (SLACK_BOT_TOKEN or SLACK_ALERT_CHANNEL not set)")
	}

	var tokenMgr *authtoken.Manager
	if svcCfg.TokenSigningKey != "" {
		tokenTTL, err := time.ParseDuration(svcCfg.TokenTTL)
		if err != nil {
			return fmt.Errorf("parsing token TTL %q: %w", svcCfg.TokenTTL, err)
		}
		tokenMgr, err = authtoken.NewManager(svcCfg.TokenSigningKey, tokenTTL)
		if err != nil {
			return fmt.Errorf("creating token manager: %w", err)
		}
		logger.Info("bearer token authentication enabled")
	} else {
		logger.Info("bearer token authentication disabled (ROSTER_TOKEN_SIGNING_KEY not set)")
	}

	srv := httpserver.NewServer(httpserver.Config{
		CORSAllowedOrigins: svcCfg.CORSAllowedOrigins,
		TokenManager:       tokenMgr,
	}, logger, db, rdb, st, runCache, notifier, metricsReg)

	httpSrv := &http.Server{
		Addr:         svcCfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("serving HTTP: %w", err)
	}
}

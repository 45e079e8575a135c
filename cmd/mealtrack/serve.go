package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mealtrack/internal/amqp"
	"mealtrack/internal/cli"
	"mealtrack/internal/config"
	"mealtrack/internal/goals"
	apphttp "mealtrack/internal/http"
	"mealtrack/internal/log"
	"mealtrack/internal/records"
	"mealtrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if servePort != "" {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		return err
	}

	seedRecords, err := cli.LoadSeed(cfg, logger)
	if err != nil {
		logger.Error("Failed to load seed records", log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeConfiguration)
		return err
	}
	store := records.New(records.WithSeed(seedRecords...))

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	// Keep the interface nil when events are off so the service skips them.
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, record events disabled",
				log.FieldError, err.Error(),
				log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP record events enabled", log.FieldExchange, cfg.AMQPExchange, log.FieldQueue, cfg.AMQPQueue)
		}
	}

	svc := services.NewRecordService(store, publisher, logger)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Records:            store,
		Submitter:          svc,
		Logger:             logger,
		Targets:            goals.Targets{DailyCalories: cfg.DailyCalorieGoal, WeeklyDays: goals.DaysPerWeek},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ViewCacheSize:      cfg.ViewCacheSize,
		ViewCacheTTL:       cfg.ViewCacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting mealtrack server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldRecords, store.Len(),
			"daily_goal", cfg.DailyCalorieGoal)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

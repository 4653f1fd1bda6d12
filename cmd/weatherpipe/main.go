package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	httpapi "github.com/weatherpipe/weatherpipe/internal/api/http"
	"github.com/weatherpipe/weatherpipe/internal/config"
	"github.com/weatherpipe/weatherpipe/internal/ingest"
	"github.com/weatherpipe/weatherpipe/internal/pipeline"
	"github.com/weatherpipe/weatherpipe/internal/scheduler"
	"github.com/weatherpipe/weatherpipe/internal/storage"
	"github.com/weatherpipe/weatherpipe/internal/store"
	"github.com/weatherpipe/weatherpipe/internal/weather"
)

func main() {
	var (
		dateFlag  = flag.String("date", "", "target date (YYYY-MM-DD), defaults to yesterday UTC")
		serveFlag = flag.Bool("serve", false, "run as a long-lived service with the daily scheduler and admin API")
	)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objStore, err := storage.New(ctx, storage.Options{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccess,
		SecretKey: cfg.StorageSecret,
		UseSSL:    cfg.StorageSSL,
		Bucket:    cfg.Bucket,
		Keys: storage.Keys{
			RawFolder:       cfg.RawFolder,
			ProcessedFolder: cfg.ProcessedFolder,
			PartitionFormat: cfg.PartitionFormat,
		},
	})
	if err != nil {
		log.Fatalf("failed to connect to object storage: %v", err)
	}

	client := ingest.NewClient(cfg.APIBaseURL, cfg.HourlyVariables, &http.Client{Timeout: cfg.HTTPTimeout})
	pipe := pipeline.New(cfg.Cities, ingest.NewCoordinator(client), objStore)
	history := store.NewRunHistory(cfg.HistorySize)

	// runAndRecord is the single entry point for every trigger source:
	// one-shot, scheduler, and the admin API.
	runAndRecord := func(ctx context.Context, targetDate time.Time) (*pipeline.Outcome, error) {
		outcome, err := pipe.Run(ctx, targetDate)
		if outcome != nil {
			history.Record(outcome)
		}
		return outcome, err
	}

	if !*serveFlag {
		targetDate, err := resolveDate(*dateFlag)
		if err != nil {
			log.Fatalf("invalid -date: %v", err)
		}
		if _, err := runAndRecord(ctx, targetDate); err != nil {
			log.Fatalf("pipeline run failed: %v", err)
		}
		return
	}

	sched := scheduler.New(cfg.ScheduleAt, cfg.MisfireGrace, func(ctx context.Context, targetDate time.Time) {
		if _, err := runAndRecord(ctx, targetDate); err != nil {
			log.Errorf("scheduled run failed: %v", err)
		}
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherpipe",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, history, runAndRecord)

	go func() {
		log.Infof("admin API listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

func resolveDate(s string) (time.Time, error) {
	if s == "" {
		return weather.YesterdayUTC(time.Now()), nil
	}
	return time.Parse(weather.DateLayout, s)
}

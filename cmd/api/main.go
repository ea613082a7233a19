package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/config"
	"github.com/avalos-dev/assignment-reviewer/internal/events"
	"github.com/avalos-dev/assignment-reviewer/internal/extract"
	"github.com/avalos-dev/assignment-reviewer/internal/grader"
	"github.com/avalos-dev/assignment-reviewer/internal/handler"
	"github.com/avalos-dev/assignment-reviewer/internal/mail"
	"github.com/avalos-dev/assignment-reviewer/internal/middleware"
	"github.com/avalos-dev/assignment-reviewer/internal/notify"
	"github.com/avalos-dev/assignment-reviewer/internal/pipeline"
	"github.com/avalos-dev/assignment-reviewer/internal/router"
	"github.com/avalos-dev/assignment-reviewer/internal/rubric"
	"github.com/avalos-dev/assignment-reviewer/internal/staging"
	"github.com/avalos-dev/assignment-reviewer/internal/store"
	"github.com/avalos-dev/assignment-reviewer/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	rubrics, err := rubric.NewStore(cfg.RubricsPath, logger)
	if err != nil {
		log.Fatalf("failed to load rubrics: %v", err)
	}

	area, err := staging.NewArea(cfg.StagingDir, logger)
	if err != nil {
		log.Fatalf("failed to prepare staging area: %v", err)
	}

	client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.OpenAIMaxTokens,
		Timeout:   cfg.GradingTimeout,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create grading client: %v", err)
	}

	engine := grader.NewEngine(rubrics, client, logger)
	extractor := extract.New(logger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to parse redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	resultStore := store.NewResultStore(cfg.ResultsPath, redisClient, cfg.ResultsCacheTTL, logger)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.SMTPEnabled {
		notifier, err = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create smtp notifier: %v", err)
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}
	publisher := events.NewNATSPublisher(natsConn, "", logger)

	pipe := pipeline.New(extractor, engine, resultStore, notifier, publisher, cfg.DefaultRubric, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	gradingHandler := handler.NewGradingHandler(pipe, resultStore, area, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler: gradingHandler,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MailPollingEnabled {
		source := mail.NewIMAPSource(mail.IMAPConfig{
			Host:     cfg.IMAPHost,
			Port:     cfg.IMAPPort,
			Username: cfg.IMAPUsername,
			Password: cfg.IMAPPassword,
		}, logger)
		defer source.Close()

		poller := mail.NewPoller(source, pipe, area, cfg.PollInterval, logger)
		go poller.Run(ctx)
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, timeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeout()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

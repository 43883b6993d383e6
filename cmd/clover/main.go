package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/export"
	"github.com/Ramsey-B/clover/pkg/extract"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/phone"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/ingest"
	"github.com/Ramsey-B/clover/pkg/routes/record"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/sweeper"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&exporters.ConsoleExporter{}))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	checker := health.NewChecker(cfg.Version)

	recordStore, closeStore, err := buildStore(cfg, logger, checker)
	if err != nil {
		return err
	}
	defer closeStore()

	sink, closeSink := buildSink(cfg, logger)
	defer closeSink()

	extractor := extract.NewExtractor(phone.NewNormalizer(cfg.PhoneCountryCode))

	pl := pipeline.New(extractor, recordStore, sink, pipeline.Config{
		Cooldown:            cfg.Cooldown(),
		FinalizeAfterBoth:   cfg.FinalizeAfterBoth(),
		CompleteIdle:        cfg.CompleteIdle(),
		MinConfidence:       cfg.MinConfidence,
		ImmediateConfidence: cfg.ImmediateConfidence,
	}, logger)

	sweep := sweeper.New(pl, cfg.SweepInterval(), logger)

	e := buildServer(cfg, logger, pl, recordStore, checker)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	if cfg.KafkaConsumerEnabled {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
			return pl.ProcessMessageAt(ctx, msg.Chat.CustomerID, msg.Chat.Text, msg.EffectiveTimestamp())
		})

		checker.AddCheck("kafka", func(_ context.Context) error {
			if !consumer.Health() {
				return fmt.Errorf("kafka consumer not healthy")
			}
			return nil
		})

		boot.AddDependency(&startup.Dependency{
			Name:    "kafka-consumer",
			StartFn: consumer.Start,
			StopFn:  func(_ context.Context) error { return consumer.Stop() },
		})
	}

	boot.AddDependency(&startup.Dependency{
		Name:    "sweeper",
		StartFn: sweep.Start,
		StopFn:  sweep.Stop,
	})

	boot.AddDependency(&startup.Dependency{
		Name: "http-server",
		StartFn: func(_ context.Context) error {
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped unexpectedly")
				}
			}()
			return nil
		},
		StopFn: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)
	logger.Infof("%s started on port %d (store=%s)", cfg.AppName, cfg.Port, cfg.StoreBackend)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return boot.Stop(shutdownCtx)
}

func buildStore(cfg config.Config, logger ectologger.Logger, checker *health.Checker) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		client, err := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		checker.AddCheck("redis", client.Ping)
		return store.NewRedis(client, cfg.RecordKeyPrefix, cfg.RecordTTL(), logger), func() { _ = client.Close() }, nil

	case "postgres":
		db, err := database.Connect(database.Config{
			Host:            cfg.DatabaseHost,
			Port:            cfg.DatabasePort,
			User:            cfg.DatabaseUserName,
			Password:        cfg.DatabasePassword,
			Name:            cfg.DatabaseName,
			SSLMode:         cfg.DatabaseSSLMode,
			MaxOpenConns:    cfg.DatabaseMaxOpenConns,
			MaxIdleConns:    cfg.DatabaseMaxIdleConns,
			ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db, cfg.DatabaseName, cfg.DatabaseMigrationFolderPath, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checker.AddCheck("database", db.PingContext)
		repo := pendingrecord.NewRepository(db, logger)
		return store.NewPostgres(repo, cfg.RecordTTL(), logger), func() { _ = db.Close() }, nil

	default:
		return store.NewMemory(cfg.RecordTTL()), func() {}, nil
	}
}

func buildSink(cfg config.Config, logger ectologger.Logger) (pipeline.Sink, func()) {
	if !cfg.KafkaExportEnabled {
		return export.NewLogSink(logger), func() {}
	}

	sink := export.NewKafkaSink(export.KafkaSinkConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaExportTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	return sink, func() { _ = sink.Close() }
}

func buildServer(cfg config.Config, logger ectologger.Logger, pl *pipeline.Pipeline, recordStore store.Store, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	record.NewHandler(pl, recordStore, logger).RegisterRoutes(e)
	ingest.NewHandler(pl, logger).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

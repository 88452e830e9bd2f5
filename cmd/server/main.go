// Command server wires the gatekeeper pipeline and serves it over HTTP.
// Business logic lives in the internal service packages; this file only
// selects backing stores from configuration and manages the process
// lifecycle.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/executor"
	"gatekeeper/internal/gatekeeper"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/httpserver"
	"gatekeeper/internal/platform/logger"
	"gatekeeper/internal/platform/postgres"
	redisplatform "gatekeeper/internal/platform/redis"
	"gatekeeper/internal/policy"
	"gatekeeper/internal/privacy"
	ratelimitmetrics "gatekeeper/internal/ratelimit/metrics"
	ratelimit "gatekeeper/internal/ratelimit/service"
	"gatekeeper/internal/ratelimit/store/bucket"
	"gatekeeper/internal/session"
	httptransport "gatekeeper/internal/transport/http"
	"gatekeeper/internal/validator"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("gatekeeper exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	// Backing stores default to in-memory; Redis carries the hot per-request
	// state, Postgres the durable trail.
	var bucketStore ratelimit.BucketStore = bucket.NewInMemoryStore()
	var sessionStore session.Store = session.NewInMemoryStore()
	if redisClient != nil {
		bucketStore = bucket.NewRedisStore(redisClient.Client)
		sessionStore = session.NewRedisStore(redisClient.Client)
		log.Info("using redis for rate-limit and session state")
	}

	var auditStore audit.Store = audit.NewInMemoryStore()
	if pool != nil {
		pgStore := audit.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		auditStore = pgStore
		log.Info("using postgres for the audit trail")
	}

	limiter, err := ratelimit.New(bucketStore, cfg.MaxRequests, cfg.TimeWindow, log, ratelimitmetrics.New())
	if err != nil {
		return err
	}
	sessions, err := session.NewRegistry(sessionStore, cfg.SessionTimeout, log)
	if err != nil {
		return err
	}
	inputValidator, err := validator.New()
	if err != nil {
		return err
	}
	ledger, err := privacy.NewLedger(privacy.NewInMemoryStore(), cfg.RetentionDays, log)
	if err != nil {
		return err
	}

	recorderOpts := []audit.Option{audit.WithMetrics(audit.NewMetrics())}
	var (
		forward   chan audit.Event
		publisher *audit.KafkaPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		forward = make(chan audit.Event, 1024)
		recorderOpts = append(recorderOpts, audit.WithForwardChannel(forward))
		log.Info("mirroring audit events to kafka", "topic", cfg.Kafka.Topic)
	}
	recorder, err := audit.NewRecorder(auditStore, log, recorderOpts...)
	if err != nil {
		return err
	}

	var queryExecutor executor.Executor
	if cfg.ExecutorURL != "" {
		queryExecutor, err = executor.NewHTTPExecutor(cfg.ExecutorURL, cfg.ExecutorTimeout)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no executor url configured, serving a static placeholder response")
		queryExecutor = executor.Static{Response: "The query engine is not configured yet. Please try again later."}
	}

	service, err := gatekeeper.New(gatekeeper.Config{
		Limiter:         limiter,
		Sessions:        sessions,
		Validator:       inputValidator,
		Policy:          policy.New(cfg.ProhibitedTopics),
		Privacy:         ledger,
		Recorder:        recorder,
		Executor:        queryExecutor,
		ExecutorTimeout: cfg.ExecutorTimeout,
		Logger:          log,
		Metrics:         gatekeeper.NewMetrics(),
	})
	if err != nil {
		return err
	}

	handler := httptransport.New(service, log)
	router := httptransport.NewRouter(handler, log, httptransport.RouterConfig{
		OpsKeyHash: cfg.OpsKeyHash,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("gatekeeper listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if publisher != nil {
		worker := audit.NewWorker(publisher, forward, log)
		g.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

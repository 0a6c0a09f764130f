// Command server wires the engine together: stores picked by configuration,
// background workers for audit and anchoring, and the HTTP surface. Business
// logic lives in the internal service packages.
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

	"reliefcore/internal/anchor"
	"reliefcore/internal/audit"
	distmetrics "reliefcore/internal/distribution/metrics"
	distservice "reliefcore/internal/distribution/service"
	"reliefcore/internal/distribution/store/ledger"
	"reliefcore/internal/platform/config"
	"reliefcore/internal/platform/httpserver"
	"reliefcore/internal/platform/logger"
	"reliefcore/internal/platform/middleware"
	"reliefcore/internal/platform/postgres"
	"reliefcore/internal/platform/redis"
	regmetrics "reliefcore/internal/registration/metrics"
	regservice "reliefcore/internal/registration/service"
	"reliefcore/internal/registration/store/identity"
	"reliefcore/internal/registration/store/record"
	httptransport "reliefcore/internal/transport/http"
)

const (
	auditQueueSize  = 1024
	anchorQueueSize = 256
	shutdownGrace   = 10 * time.Second
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.PostgresURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores: postgres when configured, redis for the identity index when
	// available, in-memory otherwise. Mixing is fine; every implementation
	// honors the same reserve/commit semantics.
	var records regservice.RecordStore = record.NewInMemory()
	var identities regservice.IdentityIndex = identity.NewInMemory()
	var events distservice.Ledger = ledger.NewInMemory()
	if db != nil {
		records = record.NewPostgres(db)
		identities = identity.NewPostgres(db)
		events = ledger.NewPostgres(db)
	}
	if redisClient != nil {
		identities = identity.NewRedis(redisClient.Client)
	}

	// Audit: channel publisher feeding a single worker; Kafka when brokers
	// are configured, otherwise the in-memory store.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	}
	auditInbox := make(chan audit.Event, auditQueueSize)
	auditWorker := audit.NewWorker(auditStore, auditInbox, log)
	publisher := audit.NewPublisher(auditInbox, nil)

	anchorJobs := make(chan anchor.Job, anchorQueueSize)
	anchorWorker := anchor.NewWorker(anchor.Noop{}, anchorJobs, log)

	registration := regservice.NewService(records, identities,
		regservice.WithLogger(log),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithAuditPublisher(publisher),
		regservice.WithAnchorQueue(anchorJobs),
	)
	distribution := distservice.NewService(events, records,
		distservice.NewEvaluator(cfg.Cooldowns),
		distservice.WithLogger(log),
		distservice.WithMetrics(distmetrics.New()),
		distservice.WithAuditPublisher(publisher),
		distservice.WithAnchorQueue(anchorJobs),
	)

	var redisHealth httptransport.RedisHealth
	if redisClient != nil {
		redisHealth = redisClient
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Registration: registration,
		Distribution: distribution,
		Logger:       log,
		JWTValidator: middleware.NewHMACValidator(cfg.JWTSigningKey),
		Postgres:     db,
		Redis:        redisHealth,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return auditWorker.Run(gctx) })
	g.Go(func() error { return anchorWorker.Run(gctx) })
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

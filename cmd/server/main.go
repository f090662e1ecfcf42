package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"taaruf/internal/abuse"
	abusemetrics "taaruf/internal/abuse/metrics"
	jwttoken "taaruf/internal/jwt_token"
	"taaruf/internal/match"
	matchmetrics "taaruf/internal/match/metrics"
	"taaruf/internal/match/service"
	"taaruf/internal/notify"
	"taaruf/internal/platform/config"
	"taaruf/internal/platform/httpserver"
	"taaruf/internal/platform/logger"
	"taaruf/internal/platform/metrics"
	platformredis "taaruf/internal/platform/redis"
	"taaruf/internal/recompute"
	"taaruf/internal/scoring"
	"taaruf/internal/traits"
	httptransport "taaruf/internal/transport/http"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal services.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when a DSN is configured, in-memory twins otherwise.
	var (
		db           *sql.DB
		matchStore   match.Store
		matchTx      match.TxRunner
		notifyStore  notify.Store
		vectorStore  traits.VectorStore
		testSource   traits.TestSource
		penaltyStore abuse.PenaltyStore
		taskStore    recompute.TaskStore
		cursorStore  recompute.CursorStore
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		matchStore = match.NewPostgresStore(db)
		matchTx = newMatchPostgresTx(db)
		notifyStore = notify.NewPostgresStore(db)
		vectorStore = traits.NewPostgresVectorStore(db)
		testSource = traits.NewPostgresTestSource(db)
		penaltyStore = abuse.NewPostgresPenaltyStore(db)
		taskStore = recompute.NewPostgresTaskStore(db)
		cursorStore = recompute.NewPostgresCursorStore(db, "trait_sweep")
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		memMatches := match.NewInMemoryStore()
		matchStore = memMatches
		matchTx = match.NewShardedTx(memMatches)
		notifyStore = notify.NewInMemoryStore()
		vectorStore = traits.NewInMemoryVectorStore()
		testSource = traits.NewInMemoryTestSource()
		penaltyStore = abuse.NewInMemoryPenaltyStore()
		taskStore = recompute.NewInMemoryTaskStore()
		cursorStore = recompute.NewInMemoryCursorStore()
	}

	// Counter store: shared Redis when configured, in-memory otherwise.
	var counters abuse.CounterStore = abuse.NewInMemoryCounterStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		counters = abuse.NewRedisCounterStore(redisClient.Client)
		log.Info("redis counter store enabled")
	} else {
		log.Warn("no redis URL configured, rate limits are per-instance")
	}

	// Notifications, with optional Kafka fan-out.
	notifyOpts := []notify.Option{notify.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		notifyOpts = append(notifyOpts, notify.WithEventPublisher(publisher))
		log.Info("kafka notification fan-out enabled", "topic", cfg.Kafka.Topic)
	}
	notifier := notify.NewService(notifyStore, notifyOpts...)

	// Services emit through a buffered inbox; the worker does the store write
	// and Kafka produce off the request path.
	inbox := make(chan notify.Notification, 256)
	notifyWorker := notify.NewWorker(notifier, inbox, notify.WithWorkerLogger(log))
	go notifyWorker.Run(ctx)
	emitter := notify.NewAsyncEmitter(inbox)

	// Metrics.
	mMetrics := matchmetrics.New()
	aMetrics := abusemetrics.New()
	httpMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Domain services.
	coordinator := service.NewCoordinator(matchStore, matchTx, emitter,
		service.WithCoordinatorMetrics(mMetrics),
		service.WithCoordinatorLogger(log))
	orchestrator := service.NewOrchestrator(matchStore, matchTx, emitter, coordinator,
		service.WithMetrics(mMetrics),
		service.WithLogger(log))
	scoreSource := match.NewScoreSource(matchStore, matchTx)
	scores := scoring.NewService(testSource, vectorStore,
		scoring.WithStoredResults(scoreSource),
		scoring.WithResultSink(scoreSource),
		scoring.WithDriftObserver(mMetrics),
		scoring.WithLogger(log))
	guard := abuse.NewGuard(counters, penaltyStore, abuse.Policy{
		FailOpen:       cfg.Abuse.FailOpen,
		ActorLimit:     cfg.Abuse.DecisionLimit,
		ActorWindow:    cfg.Abuse.DecisionWindow,
		AddrLimit:      cfg.Abuse.AddrLimit,
		AddrWindow:     cfg.Abuse.AddrWindow,
		PairCooldown:   cfg.Abuse.PairCooldown,
		BurstThreshold: cfg.Abuse.BurstThreshold,
		BurstWindow:    cfg.Abuse.BurstWindow,
		IdempotencyTTL: cfg.Abuse.IdempotencyTTL,
	}, abuse.WithMetrics(aMetrics), abuse.WithLogger(log))

	// Background recompute worker: drains the outbox continuously and runs
	// one sweep at startup to catch engine version bumps.
	worker := recompute.NewWorker(testSource, vectorStore, taskStore, cursorStore,
		recompute.WithBatchSize(cfg.RecomputeBatchSize),
		recompute.WithParallelism(cfg.RecomputeParallelism),
		recompute.WithLogger(log))
	go func() {
		if _, err := worker.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("trait vector sweep failed", "error", err)
		}
	}()
	go worker.Run(ctx)

	// HTTP.
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "taaruf", "taaruf-api")
	handler := httptransport.NewHandler(
		orchestrator, coordinator, scores, guard, matchStore, jwtService, log,
		httptransport.WithMetrics(httpMetrics, prometheus.DefaultGatherer),
	)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting taaruf core service", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/cache"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/changefeed"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/config"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/handlers"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/kafka"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/outbox"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/repository"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/router"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/server"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/tx"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/websocket"
)

func main() {
	cfg := config.Load()

	// Observability
	observability.InitLogger(cfg.ServiceName, cfg.LogLevel)
	log := observability.Log
	defer log.Sync()

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	// Database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatal("schema setup failed", zap.Error(err))
	}

	rdb := initRedis(ctx, cfg.RedisAddr, log)
	defer rdb.Close()

	// Post store
	outboxRepo := outbox.NewRepository(db)
	feedCache := &cache.FeedCache{R: rdb, TTL: cfg.FeedCacheTTL}
	st := &store.Store{
		Repo:        &repository.PostRepo{DB: db},
		Outbox:      outboxRepo,
		Feed:        changefeed.New(rdb),
		Cache:       feedCache,
		Tx:          &tx.Manager{DB: db},
		Topic:       cfg.KafkaTopic,
		PublicLimit: cfg.PublicFeedLimit,
	}

	// Kafka producer + outbox publisher
	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	publisher := outbox.NewPublisher(outboxRepo, producer, cfg.OutboxInterval)
	go publisher.Start(ctx)

	// Kafka consumer: refill public feeds after every write
	consumer := initKafka(ctx, cfg, cache.NewWarmer(feedCache, st.LoadPublic), log)
	defer consumer.Close()

	// Sign-in
	profileRepo := &repository.ProfileRepo{DB: db}
	provider := identity.NewTokenProvider(cfg.IdentitySecret, cfg.IdentityIssuer, cfg.IdentityAudience)
	gate := authgate.New(
		provider,
		profileRepo,
		&authgate.Tokens{
			Secret:   []byte(cfg.SessionSecret),
			Issuer:   cfg.SessionIssuer,
			Audience: cfg.SessionAudience,
			TTL:      cfg.SessionTTL,
		},
		&authgate.RedisRevocations{R: rdb},
	)

	// Live dashboards
	reg := websocket.NewRegistry()
	wsHandler := websocket.NewHandler(reg, st, gate, cfg.ServiceName)

	// Servers
	obsSrv := initObservabilityServer(cfg, db, rdb)
	mainSrv := server.New(cfg.HTTPAddr, router.NewRouter(
		handlers.NewAuthHandler(gate, cfg.CookieSecure),
		handlers.NewPostHandler(st),
		handlers.NewPageHandler(st, profileRepo),
		wsHandler,
		gate,
		router.Options{
			ServiceName:     cfg.ServiceName,
			SignInPerMinute: cfg.SignInRateLimitPerMin,
			RequestTimeout:  cfg.RequestTimeout,
		},
	))

	startServers(cfg, obsSrv, mainSrv, log)

	<-ctx.Done()
	performGracefulShutdown(obsSrv, mainSrv, reg, log)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func initRedis(ctx context.Context, addr string, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return client
}

func initKafka(ctx context.Context, cfg *config.Config, h kafka.Handler, log *zap.Logger) *kafka.Consumer {
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, []string{cfg.KafkaTopic}, h)
	if err != nil {
		log.Fatal("failed to create kafka consumer", zap.Error(err))
	}
	consumer.Start(ctx)
	return consumer
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.c.Ping(ctx).Err() }

func initObservabilityServer(cfg *config.Config, db observability.Pinger, rdb *redis.Client) *http.Server {
	mux := chi.NewRouter()
	mux.Use(observability.MetricsMiddleware(cfg.ServiceName))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler(db, redisPinger{rdb}))
	return &http.Server{Addr: cfg.ObsHTTPAddr, Handler: mux}
}

func startServers(cfg *config.Config, obsSrv *http.Server, mainSrv *server.Server, log *zap.Logger) {
	go func() {
		log.Info("starting observability server", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server error", zap.Error(err))
		}
	}()
	go func() {
		if err := mainSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
}

func performGracefulShutdown(obs *http.Server, mainSrv *server.Server, reg *websocket.Registry, log *zap.Logger) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked sockets are not tracked by Shutdown.
	reg.CloseAll()
	if err := mainSrv.Shutdown(ctx); err != nil {
		log.Error("error during main server shutdown", zap.Error(err))
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}
	log.Info("shutdown complete, exiting")
}

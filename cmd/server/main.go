package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kevin07696/gocardless-service/internal/adapters/database"
	"github.com/kevin07696/gocardless-service/internal/adapters/gocardless"
	"github.com/kevin07696/gocardless-service/internal/adapters/kafka"
	"github.com/kevin07696/gocardless-service/internal/adapters/postgres"
	"github.com/kevin07696/gocardless-service/internal/adapters/queue"
	"github.com/kevin07696/gocardless-service/internal/adapters/redisx"
	"github.com/kevin07696/gocardless-service/internal/adapters/secrets"
	"github.com/kevin07696/gocardless-service/internal/auth"
	"github.com/kevin07696/gocardless-service/internal/config"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/internal/handlers"
	adminHandler "github.com/kevin07696/gocardless-service/internal/handlers/admin"
	checkoutHandler "github.com/kevin07696/gocardless-service/internal/handlers/checkout"
	cronHandler "github.com/kevin07696/gocardless-service/internal/handlers/cron"
	webhookHandler "github.com/kevin07696/gocardless-service/internal/handlers/webhook"
	"github.com/kevin07696/gocardless-service/internal/services/billingrequest"
	"github.com/kevin07696/gocardless-service/internal/services/checkout"
	"github.com/kevin07696/gocardless-service/internal/services/mandate"
	"github.com/kevin07696/gocardless-service/internal/services/payment"
	"github.com/kevin07696/gocardless-service/internal/services/preorder"
	"github.com/kevin07696/gocardless-service/internal/services/resource"
	"github.com/kevin07696/gocardless-service/internal/services/subscription"
	"github.com/kevin07696/gocardless-service/internal/services/webhook"
	pkghttp "github.com/kevin07696/gocardless-service/pkg/http"
	"github.com/kevin07696/gocardless-service/pkg/middleware"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"github.com/kevin07696/gocardless-service/pkg/security"
	"github.com/kevin07696/gocardless-service/pkg/shutdown"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const tokenIssuer = "gocardless-service"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Invalid configuration", zap.Error(err))
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting gocardless service",
		zap.Bool("sandbox", cfg.GoCardless.Sandbox),
		zap.Bool("subscriptions", cfg.Features.Subscriptions),
		zap.Bool("pre_orders", cfg.Features.PreOrders),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	creds, err := loadCredentials(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load GoCardless credentials", zap.Error(err))
	}

	// Database
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.URL())
	if cfg.Database.MaxConns > 0 {
		dbCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		dbCfg.MinConns = cfg.Database.MinConns
	}
	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	sm.RegisterNoErr("database", dbAdapter.Close)
	dbAdapter.StartPoolMonitoring(ctx, time.Minute)

	// Redis is optional; without it schemes are fetched each time and
	// webhook events are not deduplicated across workers
	redisClient := initRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		sm.RegisterCloser("redis", redisClient)
	}

	health := observability.NewHealthChecker(dbAdapter.Pool(), redisClient)
	deps := initDependencies(ctx, cfg, creds, dbAdapter, redisClient, health, sm, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	sm.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)

	router := handlers.NewRouter(handlers.RouterConfig{
		Webhook:        deps.webhookHandler,
		Checkout:       deps.checkoutHandler,
		Admin:          deps.adminHandler,
		StatusChecks:   deps.statusCheckHandler,
		EventCleanup:   deps.eventCleanupHandler,
		AdminSecret:    auth.NewSharedSecret(cfg.Admin.Secret),
		RateLimiter:    rateLimiter,
		RequestTimeout: cfg.Server.RequestTimeout,
		Development:    cfg.Logger.Development,
		Logger:         logger,
	})

	metricsServer := observability.StartMetricsServer(
		fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		health,
		logger,
	)
	sm.RegisterHTTPServer("metrics-server", metricsServer)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	sm.RegisterHTTPServer("http-server", httpServer)

	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	sm.WaitForShutdown()
	logger.Info("Server stopped")
}

// Dependencies holds the HTTP handlers built from the service graph
type Dependencies struct {
	webhookHandler      *webhookHandler.Handler
	checkoutHandler     *checkoutHandler.Handler
	adminHandler        *adminHandler.Handler
	statusCheckHandler  *cronHandler.StatusCheckHandler
	eventCleanupHandler *cronHandler.EventCleanupHandler
}

// initDependencies initializes all services and handlers with dependency injection.
// Background consumers are registered with sm.
func initDependencies(
	ctx context.Context,
	cfg *config.Config,
	creds secrets.GatewayCredentials,
	dbAdapter *database.PostgreSQLAdapter,
	redisClient *redis.Client,
	health *observability.HealthChecker,
	sm *shutdown.Manager,
	logger *zap.Logger,
) *Dependencies {
	serviceLogger := security.NewZapLogger(logger)

	// Repositories
	dbExecutor := postgres.NewDBExecutor(dbAdapter.Pool())
	orders := postgres.NewOrderRepository(dbExecutor)
	store := postgres.NewResourceStore(dbExecutor)
	tokens := postgres.NewTokenRepository(dbExecutor)
	customers := postgres.NewCustomerRepository(dbExecutor)
	scheduler := postgres.NewStatusCheckScheduler(dbExecutor)

	// GoCardless API client
	gcCfg := gocardless.DefaultConfig(creds.AccessToken, cfg.GoCardless.Sandbox)
	if cfg.GoCardless.Timeout > 0 {
		gcCfg.Timeout = cfg.GoCardless.Timeout
	}
	client := gocardless.NewClient(gcCfg, pkghttp.NewHTTPClient(pkghttp.GoCardlessClientConfig(), gcCfg.Timeout), logger)

	// Core services
	recorder := resource.NewRecorder(store, serviceLogger)
	resolver := mandate.NewResolver(dbExecutor, tokens, store, client, serviceLogger)

	paymentCfg := payment.DefaultConfig()
	paymentCfg.PaymentURLFormat = gocardless.PaymentURLFormat(cfg.GoCardless.Sandbox)
	paymentCfg.MandateURLFormat = gocardless.MandateURLFormat(cfg.GoCardless.Sandbox)
	payments := payment.NewService(dbExecutor, orders, store, recorder, scheduler, client, resolver, paymentCfg, serviceLogger)

	// Optional strategies
	var subscriptions *subscription.Strategy
	if cfg.Features.Subscriptions {
		subscriptions = subscription.NewStrategy(dbExecutor, orders, store, client, serviceLogger).WithPayments(payments)
		recorder.WithSubscriptions(subscriptions)
		payments.WithSubscriptions(subscriptions)
	}
	var preOrders *preorder.Strategy
	if cfg.Features.PreOrders {
		preOrders = preorder.NewStrategy(dbExecutor, orders, store, serviceLogger).WithPayments(payments)
		payments.WithPreOrders(preOrders)
	}

	checkoutTokens, err := auth.NewCheckoutTokenManager([]byte(cfg.Checkout.TokenKey), tokenIssuer, cfg.Checkout.TokenExpiry)
	if err != nil {
		logger.Fatal("Failed to initialize checkout tokens", zap.Error(err))
	}

	var schemes ports.SchemeIdentifierCache
	if redisClient != nil {
		schemes = redisx.NewSchemeIdentifierCache(redisClient, cfg.GoCardless.Sandbox)
	}

	checkoutCfg := checkout.DefaultConfig()
	checkoutCfg.InstantPayments = cfg.Checkout.InstantPayments
	checkoutCfg.SavedBankAccounts = cfg.Checkout.SavedBankAccounts
	checkoutCfg.Scheme = cfg.Checkout.Scheme
	checkoutCfg.PaymentURLFormat = cfg.Checkout.PaymentURLFormat
	checkoutCfg.ReturnURLFormat = cfg.Checkout.ReturnURLFormat
	checkoutCfg.SchemeCacheTTL = cfg.Checkout.SchemeCacheTTL
	checkoutSvc := checkout.NewService(orders, customers, tokens, recorder, client, schemes, payments, checkoutTokens, checkoutCfg, serviceLogger)

	billing := billingrequest.NewService(dbExecutor, orders, store, recorder, client, payments, resolver, billingrequest.Config{
		ReturnURLFormat: cfg.Checkout.ReturnURLFormat,
		RetryURLFormat:  cfg.Checkout.RetryURLFormat,
	}, serviceLogger)

	// Webhook processing
	dispatcher := webhook.NewDispatcher(store, resolver, payments, billing, serviceLogger)
	if subscriptions != nil {
		dispatcher.WithSubscriptions(subscriptions)
	}
	if redisClient != nil {
		dispatcher.WithDeduplicator(redisx.NewEventDeduplicator(redisClient, cfg.Redis.EventTTL))
	}

	webhookQueue := initWebhookQueue(ctx, cfg.Kafka, dispatcher, health, sm, logger)
	receiver := webhook.NewReceiver(webhook.Config{Secret: creds.WebhookSecret}, webhookQueue, serviceLogger)

	// Handlers
	admin := adminHandler.NewHandler(payments, orders, store, logger)
	if subscriptions != nil {
		admin.WithSubscriptions(subscriptions)
	}
	if preOrders != nil {
		admin.WithPreOrders(preOrders)
	}

	cronSecret := auth.NewSharedSecret(cfg.Cron.Secret)

	return &Dependencies{
		webhookHandler:      webhookHandler.NewHandler(receiver, logger),
		checkoutHandler:     checkoutHandler.NewHandler(checkoutSvc, billing, checkoutTokens, logger),
		adminHandler:        admin,
		statusCheckHandler:  cronHandler.NewStatusCheckHandler(payments, cronSecret, cfg.Cron.BatchSize, logger),
		eventCleanupHandler: cronHandler.NewEventCleanupHandler(store, cronSecret, logger),
	}
}

// initWebhookQueue returns the Kafka producer with its consumer group running,
// or an in-process worker pool when no brokers are configured
func initWebhookQueue(ctx context.Context, cfg config.KafkaConfig, processor ports.WebhookProcessor, health *observability.HealthChecker, sm *shutdown.Manager, logger *zap.Logger) ports.WebhookQueue {
	if len(cfg.Brokers) == 0 {
		logger.Warn("No Kafka brokers configured, webhooks are processed in-process")
		local := queue.NewLocalQueue(processor, cfg.LocalBuffer, cfg.Workers, logger)
		local.Start(ctx)
		sm.Register("webhook-queue", local.Stop)
		return local
	}

	producer := kafka.NewWebhookProducer(cfg.Brokers, cfg.Topic, logger)
	health.AddOptional("kafka", producer.Ping)
	consumer := kafka.NewWebhookConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
		Workers: cfg.Workers,
	}, processor, logger)

	worker := shutdown.NewBackgroundWorker("webhook-consumer", logger)
	worker.Start(func(ctx context.Context) {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("Webhook consumer exited", zap.Error(err))
		}
	})

	// LIFO: the consumer drains after the producer stops taking new payloads
	sm.Register("webhook-consumer", worker.Shutdown)
	sm.RegisterCloser("webhook-producer", producer)
	return producer
}

// loadCredentials reads the API token and webhook secret from the environment
// or the configured secret manager
func loadCredentials(ctx context.Context, cfg *config.Config, logger *zap.Logger) (secrets.GatewayCredentials, error) {
	if cfg.UsesEnvSecrets() {
		return secrets.GatewayCredentials{
			AccessToken:   cfg.GoCardless.AccessToken,
			WebhookSecret: cfg.GoCardless.WebhookSecret,
		}, nil
	}

	store, err := secrets.New(ctx, cfg.Secrets, logger)
	if err != nil {
		return secrets.GatewayCredentials{}, err
	}
	return secrets.LoadGatewayCredentials(ctx, store, cfg.Secrets)
}

func initRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("Redis not configured")
		return nil
	}

	client, err := redisx.NewClient(ctx, redisx.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		return nil
	}
	return client
}

// initLogger builds a JSON production logger, or a console logger in development
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

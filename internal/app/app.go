package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/api/rest"
	"github.com/knowtix/billing-service/internal/api/rest/handlers"
	"github.com/knowtix/billing-service/internal/config"
	"github.com/knowtix/billing-service/internal/db"
	"github.com/knowtix/billing-service/internal/email"
	grpcserver "github.com/knowtix/billing-service/internal/grpc"
	"github.com/knowtix/billing-service/internal/integration/razorpay"
	"github.com/knowtix/billing-service/internal/integration/stripe"
	"github.com/knowtix/billing-service/internal/kafka"
	"github.com/knowtix/billing-service/internal/metrics"
	"github.com/knowtix/billing-service/internal/middleware"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/internal/service"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout        = 30 * time.Second
	systemMetricsInterval = 15 * time.Second
	topicPartitions       = 3
)

// App is the container for every long-lived component of the service.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	DB        *sqlx.DB
	Redis     *redis.Client
	Registry  *prometheus.Registry
	Publisher kafka.Publisher
	System    *metrics.SystemMetrics

	Subscriptions repository.SubscriptionRepository
	Reconciler    service.Reconciler
	Checkout      service.SubscriptionService
	Plans         service.PlanService

	Router *gin.Engine
	HTTP   *rest.Server
	GRPC   *grpcserver.Server
}

// New connects infrastructure and wires services and handlers. Redis and
// Kafka are optional; when they are unavailable the service runs uncached
// and without events.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Connect(ctx, cfg, connectTimeout, log)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: conn}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billing := metrics.NewBillingMetrics(a.Registry)
	a.System = metrics.NewSystemMetrics(a.Registry, log)

	a.Subscriptions = repository.NewPostgresSubscriptionRepository(conn, log)
	if cfg.Redis.Enabled {
		client, err := repository.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, 5*time.Second, log)
		if err != nil {
			log.Warnw("Redis unavailable, subscription cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.Redis = client
			cache := repository.NewRedisCacheRepository(client, cfg.Redis.TTL, log)
			a.Subscriptions = repository.NewCachedSubscriptionRepository(a.Subscriptions, cache, log)
		}
	}

	a.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		if err := a.setupKafka(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.wire(billing)
	return a, nil
}

func (a *App) setupKafka(ctx context.Context) error {
	kcfg := kafka.NewConfig(a.Config.Kafka.Brokers, a.Config.Kafka.Topic, a.Config.Kafka.Driver)
	if a.Config.Kafka.AutoCreateTopics {
		if err := kafka.EnsureTopics(ctx, kcfg, topicPartitions, a.Log); err != nil {
			a.Log.Warnw("Could not ensure Kafka topic", "topic", kcfg.Topic, "error", err)
		}
	}
	publisher, err := kafka.NewPublisher(kcfg, a.Log)
	if err != nil {
		return fmt.Errorf("kafka publisher: %w", err)
	}
	a.Publisher = publisher
	return nil
}

func (a *App) wire(billing metrics.BillingMetrics) {
	cfg, log := a.Config, a.Log

	rzpClient := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, log)
	stripeClient := stripe.NewClient(cfg.Stripe.APIKey, nil, log)
	var periods service.PeriodEndLookup
	if cfg.Stripe.APIKey != "" {
		periods = stripeClient
	}

	users := repository.NewPostgresUserRepository(a.DB, log)
	mailer := email.NewSMTPEmailService(email.SMTPConfig{
		Host:         cfg.Email.Host,
		Port:         cfg.Email.Port,
		Username:     cfg.Email.User,
		Password:     cfg.Email.Password,
		From:         cfg.Email.From,
		ContactEmail: cfg.Email.ContactEmail,
	})

	a.Reconciler = service.NewReconciler(a.Subscriptions, repository.NewPostgresWebhookEventRepository(a.DB, log), a.Publisher, billing, periods, log)
	a.Checkout = service.NewSubscriptionService(a.Subscriptions, users, rzpClient, stripeClient, a.Publisher, billing, log)
	a.Plans = service.NewPlanService(repository.NewPostgresPlanRepository(a.DB, log), rzpClient, log)
	chat := service.NewChatService(repository.NewPostgresMessageRepository(a.DB, log), log)
	contact := service.NewContactService(repository.NewPostgresContactRepository(a.DB, log), mailer, log)
	upload := service.NewUploadService(a.Subscriptions, cfg.Documents.URL, cfg.Documents.Timeout, billing, log)

	a.Router = rest.SetupRouter(log, rest.Routes{
		Auth: middleware.NewJWTMiddleware(cfg.Auth.CookieName,
			&middleware.HMACTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}, log),
		Webhooks: handlers.NewWebhookHandler(
			stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
			razorpay.NewVerifier(cfg.Razorpay.WebhookSecret),
			a.Reconciler, log),
		Subscriptions: handlers.NewSubscriptionHandler(a.Checkout, log),
		Plans:         handlers.NewPlanHandler(a.Plans, log),
		Chat:          handlers.NewChatHandler(chat, log),
		Upload:        handlers.NewUploadHandler(upload, log),
		Contact:       handlers.NewContactHandler(contact, log),
		DB:            a.DB,
		Registry:      a.Registry,
	})
	a.HTTP = rest.NewServer(a.Router, cfg, log)
	if cfg.GRPC.Enabled {
		a.GRPC = grpcserver.NewServer(cfg, log)
	}
}

// Run serves HTTP and gRPC until ctx is cancelled or a server fails, then
// shuts both down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.System.Run(ctx, systemMetricsInterval)

	errCh := make(chan error, 2)
	go func() { errCh <- a.HTTP.Start() }()
	if a.GRPC != nil {
		go func() { errCh <- a.GRPC.Start() }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.Log.Info("Shutdown signal received")
	case runErr = <-errCh:
		a.Log.Errorw("Server stopped unexpectedly", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if a.GRPC != nil {
		a.GRPC.Stop()
	}
	if err := a.HTTP.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("http shutdown: %w", err))
	}

	a.Log.Info("Servers stopped")
	return runErr
}

// Close releases connections. It is safe on a partially built App.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Log.Warnw("Error closing event publisher", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warnw("Error closing Redis client", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Errorw("Error closing database connection", "error", err)
		}
	}
}

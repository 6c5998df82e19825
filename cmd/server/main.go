package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/adapter/cache"
	"github.com/laundrotech/intel-gateway/internal/adapter/external/payment"
	"github.com/laundrotech/intel-gateway/internal/adapter/feed"
	"github.com/laundrotech/intel-gateway/internal/adapter/http/fiber/handlers"
	"github.com/laundrotech/intel-gateway/internal/adapter/http/fiber/middleware"
	"github.com/laundrotech/intel-gateway/internal/adapter/intel"
	"github.com/laundrotech/intel-gateway/internal/adapter/queue"
	"github.com/laundrotech/intel-gateway/internal/adapter/storage/postgres"
	"github.com/laundrotech/intel-gateway/internal/adapter/vault"
	wsAdapter "github.com/laundrotech/intel-gateway/internal/adapter/websocket"
	"github.com/laundrotech/intel-gateway/internal/catalog"
	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/observability/telemetry"
	"github.com/laundrotech/intel-gateway/internal/ports"
	"github.com/laundrotech/intel-gateway/internal/service/analysis"
	"github.com/laundrotech/intel-gateway/internal/service/auth"
	"github.com/laundrotech/intel-gateway/internal/service/billing"
	"github.com/laundrotech/intel-gateway/internal/service/email"
	"github.com/laundrotech/intel-gateway/internal/session"
	"github.com/laundrotech/intel-gateway/pkg/config"
)

const (
	serviceName    = "laundrotech-intel-gateway"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting LaundroTech Intel Gateway",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// 3. Resolve secrets from Vault when enabled
	if cfg.Vault.Enabled {
		resolveSecrets(cfg, logger)
	}

	// 4. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(serviceName, cfg.OpenTelemetry.Jaeger.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 5. Initialize PostgreSQL Connection Pool
	db, err := postgres.NewConnection(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := postgres.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// 6. Initialize Cache. Redis is preferred; a local cache keeps a dev
	// environment working when Redis is absent.
	appCache, err := cache.NewRedisCache(cfg.Redis.URL, logger)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
		appCache = cache.NewLocalCache(time.Minute, logger)
	}
	defer appCache.Close()

	// 7. Initialize Message Queue
	messageQueue := connectQueue(cfg, logger)
	if messageQueue != nil {
		defer messageQueue.Close()
	}

	// 8. Initialize Depth Tier Catalog
	cat, err := buildCatalog(cfg.Tiers)
	if err != nil {
		logger.Fatal("Invalid tier catalog configuration", zap.Error(err))
	}

	// 9. Initialize Repositories
	purchaseRepo := postgres.NewPurchaseRepository(db, logger)
	userRepo := postgres.NewUserRepository(db, logger)

	// 10. Initialize the analysis backend client and session manager
	intelClient := intel.NewClient(intel.Config{
		BaseURL: cfg.IntelBackend.URL,
		APIKey:  cfg.IntelBackend.APIKey,
		Timeout: cfg.IntelBackend.Timeout,
	}, logger)

	sessionTTL := cfg.Session.TTL
	if sessionTTL == 0 {
		sessionTTL = 30 * time.Minute
	}
	sessionManager := session.NewManager(cat, intelClient, appCache, sessionTTL, logger)
	defer sessionManager.Close()

	// 11. Initialize Services (Business Logic Layer)
	emailService, err := buildEmailService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service", zap.Error(err))
	}

	stripeGateway := payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey, logger)
	authService := auth.NewService(userRepo, appCache, cfg.JWT.Secret, logger)
	billingService := billing.NewService(purchaseRepo, userRepo, stripeGateway, emailService, messageQueue, cat, logger)

	// 12. Initialize WebSocket Hub (for real-time session updates)
	wsHub := wsAdapter.NewHub()
	go wsHub.Run()

	analysisService := analysis.NewService(sessionManager, cat, billingService, wsHub, messageQueue, logger)

	// 13. Market monitoring feed for depth-5 subscribers. The gateway
	// subscribes to the backend's monitoring stream and relays its events to
	// connected feed clients.
	var feedServer *feed.Server
	if cfg.Feed.Enabled {
		feedServer = feed.NewServer(logger)
		go func() {
			if err := feedServer.Start(cfg.Feed.Port); err != nil {
				logger.Error("Feed server failed", zap.Error(err))
			}
		}()

		streamCtx, stopStream := context.WithCancel(context.Background())
		defer stopStream()
		marketStream := intel.NewStreamClient(cfg.IntelBackend.URL, cfg.IntelBackend.APIKey, logger)
		go relayMarketStream(streamCtx, marketStream, feedServer, cfg.Feed.Topic, logger)
	}

	// 14. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(config.CORSConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Credentials:    cfg.CORS.Credentials,
	}))
	if cfg.CircuitBreaker.Enabled {
		app.Use(middleware.CircuitBreaker(logger))
	}

	// Health Check Endpoints
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		if err := sqlDB.Ping(); err != nil {
			return c.Status(503).SendString("Database not ready")
		}
		if err := appCache.Ping(); err != nil {
			return c.Status(503).SendString("Cache not ready")
		}
		return c.SendString("Ready")
	})

	// Metrics endpoint for Prometheus
	app.Get("/metrics", func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	})

	// API v1 Routes
	v1 := app.Group("/api/v1")

	// Auth routes (public)
	authHandler := handlers.NewAuthHandler(authService, emailService, logger)
	v1.Post("/auth/login", authHandler.Login)
	v1.Post("/auth/register", authHandler.Register)
	v1.Post("/auth/refresh", authHandler.RefreshToken)

	// Tier catalog (public, the pricing page reads it)
	tierHandler := handlers.NewTierHandler(cat)
	v1.Get("/tiers", tierHandler.List)

	// Protected routes
	protected := v1.Group("", middleware.AuthRequired(authService))
	protected.Get("/auth/me", authHandler.Me)

	// Analysis session routes
	analysisHandler := handlers.NewAnalysisHandler(analysisService, logger)
	protected.Post("/sessions", analysisHandler.CreateSession)
	protected.Get("/sessions/:id", analysisHandler.GetSession)
	protected.Post("/sessions/:id/address", analysisHandler.SubmitAddress)
	protected.Post("/sessions/:id/depth", analysisHandler.SelectDepth)
	protected.Post("/sessions/:id/purchase", analysisHandler.ConfirmPurchase)
	protected.Post("/sessions/:id/reset", analysisHandler.Reset)

	// Billing routes
	billingHandler := handlers.NewBillingHandler(billingService, logger)
	protected.Post("/billing/intents", billingHandler.CreateIntent)
	protected.Get("/billing/history", billingHandler.GetHistory)
	protected.Post("/billing/purchases/:id/refund", middleware.AdminRequired(), billingHandler.Refund)

	// WebSocket route for real-time session updates
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/updates", websocket.New(func(c *websocket.Conn) {
		user, err := authService.ValidateToken(context.Background(), c.Query("token"))
		if err != nil {
			c.Close()
			return
		}
		wsHub.AddClient(c, user.ID)
	}))

	// 15. Start Background Workers
	if messageQueue != nil {
		go startBackgroundWorkers(messageQueue, logger)
	}

	// 16. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 17. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if feedServer != nil {
		feedServer.Stop()
	}

	logger.Info("Server exited gracefully")
}

// resolveSecrets overrides config values with Vault secrets. Failures are
// fatal: running with a half-resolved secret set is worse than not starting.
func resolveSecrets(cfg *config.Config, logger *zap.Logger) {
	sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
	if err != nil {
		logger.Fatal("Failed to connect to Vault", zap.Error(err))
	}

	if url, err := sm.GetDatabaseCredentials(); err == nil && url != "" {
		cfg.Database.URL = url
	}
	if key, err := sm.GetStripeKey(); err == nil && key != "" {
		cfg.Payment.Stripe.SecretKey = key
	}
	if key, err := sm.GetIntelBackendKey(); err == nil && key != "" {
		cfg.IntelBackend.APIKey = key
	}
	if secret, err := sm.GetJWTSecret(); err == nil && secret != "" {
		cfg.JWT.Secret = secret
	}

	logger.Info("Secrets resolved from Vault")
}

// relayMarketStream keeps the backend monitoring stream subscribed and pumps
// its events into the feed server, reconnecting after transient failures.
func relayMarketStream(ctx context.Context, stream *intel.StreamClient, srv *feed.Server, topic string, logger *zap.Logger) {
	if topic == "" {
		topic = "market"
	}

	for {
		if err := stream.Connect(ctx, topic); err != nil {
			logger.Warn("Market stream connect failed", zap.Error(err))
		} else {
			srv.Relay(ctx, stream)
			stream.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// connectQueue prefers RabbitMQ when enabled, NATS otherwise. The gateway
// degrades to no event publishing rather than refusing to start.
func connectQueue(cfg *config.Config, logger *zap.Logger) queue.MessageQueue {
	if cfg.RabbitMQ.Enabled {
		mq, err := queue.NewRabbitMQQueue(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, events disabled", zap.Error(err))
			return nil
		}
		return mq
	}

	mq, err := queue.NewNATSQueue(cfg.NATS.URL, logger)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", zap.Error(err))
		return nil
	}
	return mq
}

func buildCatalog(tiers []config.TierConfig) (*catalog.Catalog, error) {
	if len(tiers) == 0 {
		return catalog.Default(), nil
	}

	out := make([]domain.DepthTier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, domain.DepthTier{
			Level:       t.Level,
			Name:        t.Name,
			PriceCents:  t.PriceCents,
			BillingKind: domain.BillingKind(t.BillingKind),
			Features:    t.Features,
		})
	}
	return catalog.New(out)
}

func buildEmailService(cfg *config.Config, logger *zap.Logger) (ports.EmailService, error) {
	if cfg.Email.Provider == "" {
		return email.NewService(nil, logger)
	}

	return email.NewService(&email.Config{
		Provider:       cfg.Email.Provider,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		SMTPHost:       cfg.Email.SMTPHost,
		SMTPPort:       cfg.Email.SMTPPort,
		SMTPUsername:   cfg.Email.SMTPUsername,
		SMTPPassword:   cfg.Email.SMTPPassword,
		SMTPUseTLS:     cfg.Email.SMTPUseTLS,
		BaseURL:        cfg.Email.BaseURL,
	}, logger)
}

// startBackgroundWorkers consumes billing and preview events for audit logs
// and future aggregation.
func startBackgroundWorkers(mq queue.MessageQueue, logger *zap.Logger) {
	logger.Info("Starting background workers")

	mq.Subscribe(queue.SubjectPurchaseCompleted, func(msg []byte) error {
		logger.Info("Purchase completed", zap.ByteString("event", msg))
		return nil
	})

	mq.Subscribe(queue.SubjectPurchaseRefunded, func(msg []byte) error {
		logger.Info("Purchase refunded", zap.ByteString("event", msg))
		return nil
	})

	mq.Subscribe(queue.SubjectPreviewGenerated, func(msg []byte) error {
		logger.Debug("Preview generated", zap.ByteString("event", msg))
		return nil
	})
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_authnet/internal/cache"
	"github.com/GTDGit/gtd_authnet/internal/config"
	"github.com/GTDGit/gtd_authnet/internal/database"
	"github.com/GTDGit/gtd_authnet/internal/handler"
	"github.com/GTDGit/gtd_authnet/internal/middleware"
	"github.com/GTDGit/gtd_authnet/internal/repository"
	"github.com/GTDGit/gtd_authnet/internal/secrets"
	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/sse"
	"github.com/GTDGit/gtd_authnet/internal/utils"
	"github.com/GTDGit/gtd_authnet/pkg/authorizenet"
)

// main is the entrypoint of the Authorize.Net payment gateway service.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting gtd authnet")
	utils.SetJWTSecret(cfg.JWTSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect database
	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Resolve the transaction key, from Secrets Manager when configured
	var secretsClient *secrets.Client
	if cfg.AuthNet.TransactionKeySecret != "" {
		secretsClient, err = secrets.NewClient(ctx, cfg.AWS.Region)
		if err != nil {
			log.Error().Err(err).Msg("secrets manager client failed")
			os.Exit(1)
		}
	}
	transactionKey, err := secrets.ResolveTransactionKey(ctx, secretsClient, cfg.AuthNet.TransactionKeySecret, cfg.AuthNet.TransactionKey)
	if err != nil {
		log.Error().Err(err).Msg("transaction key could not be resolved")
		os.Exit(1)
	}
	cfg.AuthNet.TransactionKey = transactionKey
	if cfg.AuthNet.APILoginID == "" || cfg.AuthNet.TransactionKey == "" {
		log.Warn().Msg("Authorize.Net credentials are not set; charges will be rejected by the gateway")
	}

	// 5. Initialize Authorize.Net clients (live & sandbox)
	liveClient := authorizenet.NewClient(authorizenet.Config{
		APILoginID:     cfg.AuthNet.APILoginID,
		TransactionKey: cfg.AuthNet.TransactionKey,
		Sandbox:        cfg.AuthNet.UseSandbox,
		Timeout:        cfg.AuthNet.Timeout,
	})
	sandboxLoginID, sandboxKey := cfg.AuthNet.SandboxCredentials()
	sandboxClient := authorizenet.NewClient(authorizenet.Config{
		APILoginID:     sandboxLoginID,
		TransactionKey: sandboxKey,
		Sandbox:        true,
		Timeout:        cfg.AuthNet.Timeout,
	})

	// 6. Initialize repositories
	clientRepo := repository.NewClientRepository(db)
	requestRepo := repository.NewPaymentRequestRepository(db)
	gatewayUserRepo := repository.NewGatewayUserRepository(db)
	cbRepo := repository.NewCallbackRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 7. Initialize services
	authSvc := service.NewAuthService(clientRepo)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)
	clientSvc := service.NewClientService(clientRepo)
	callbackSvc := service.NewCallbackService(clientRepo, cbRepo, cfg.CallbackTimeout)
	profileSvc := service.NewProfileService(gatewayUserRepo)
	paymentSvc := service.NewPaymentService(
		requestRepo,
		profileSvc,
		service.NewAuthorizeNetGateway(liveClient),
		service.NewAuthorizeNetGateway(sandboxClient),
		callbackSvc,
		cache.NewSubmissionLock(redisClient, cfg.SubmissionLockTTL),
		cfg.AuthNet,
		cfg.Checkout,
	)
	adminPaymentSvc := service.NewAdminPaymentService(requestRepo, cbRepo)

	// 7a. Live admin feed
	sseHub := sse.NewHub()
	paymentSvc.SetEventNotifier(sse.NewHubNotifier(sseHub))

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if _, err := adminAuthSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			log.Error().Err(err).Msg("admin bootstrap failed")
		}
	}

	// 8. Initialize handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(
			handler.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) }),
			redisClient,
			cfg.AuthNet.UseSandbox,
		),
		Payment:      handler.NewPaymentHandler(paymentSvc),
		Checkout:     handler.NewCheckoutHandler(paymentSvc),
		AdminPayment: handler.NewAdminPaymentHandler(adminPaymentSvc),
		Client:       handler.NewClientHandler(clientSvc),
		Auth:         handler.NewAuthHandler(adminAuthSvc),
		SSE:          handler.NewSSEHandler(sseHub),
	}

	// 9. Initialize middleware
	authMw := middleware.NewAuthMiddleware(authSvc)
	jwtMw := middleware.NewJWTMiddleware()
	checkoutLimiter := middleware.NewCheckoutRateLimiter(cfg.Checkout.RatePerMinute, cfg.Checkout.RateBurst)

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, authMw, jwtMw, checkoutLimiter)

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Bool("sandbox", cfg.AuthNet.UseSandbox).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health       *handler.HealthHandler
	Payment      *handler.PaymentHandler
	Checkout     *handler.CheckoutHandler
	AdminPayment *handler.AdminPaymentHandler
	Client       *handler.ClientHandler
	Auth         *handler.AuthHandler
	SSE          *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, authMiddleware *middleware.AuthMiddleware, jwtMiddleware *middleware.JWTMiddleware, checkoutLimiter *middleware.CheckoutRateLimiter) {
	// Public
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/v1/service-details", handlers.Payment.GetServiceDetails)

	// Client API
	v1 := router.Group("/v1")
	v1.Use(authMiddleware.Handle())
	{
		v1.POST("/payment-requests", handlers.Payment.CreatePaymentRequest)
		v1.GET("/payment-requests/:name", handlers.Payment.GetPaymentRequest)
		v1.POST("/payments", handlers.Payment.SubmitPayment)
		v1.GET("/stored-payments", handlers.Payment.ListStoredPayments)
	}

	// Browser checkout
	integrations := router.Group("/integrations")
	{
		integrations.GET("/authorizenet_checkout", handlers.Checkout.GetCheckout)
		integrations.POST("/authorizenet_checkout/payment", checkoutLimiter.Handle(), handlers.Checkout.SubmitCheckout)
		integrations.GET("/payment-success", handlers.Checkout.PaymentSuccess)
		integrations.GET("/payment-failed", handlers.Checkout.PaymentFailed)
	}

	// Admin
	router.POST("/v1/admin/auth/login", handlers.Auth.Login)
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle())
	{
		admin.GET("/payment-requests", handlers.AdminPayment.ListPaymentRequests)
		admin.GET("/payment-requests/:name", handlers.AdminPayment.GetPaymentRequest)
		admin.GET("/payment-requests/:name/logs", handlers.AdminPayment.GetPaymentRequestLogs)
		admin.GET("/sse", handlers.SSE.Stream)

		admin.GET("/clients", handlers.Client.ListClients)
		admin.POST("/clients", handlers.Client.CreateClient)
		admin.GET("/clients/:id", handlers.Client.GetClient)
		admin.PUT("/clients/:id", handlers.Client.UpdateClient)
		admin.POST("/clients/:id/regenerate", handlers.Client.RegenerateKeys)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

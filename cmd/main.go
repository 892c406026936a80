package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-user-api/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-user-api/internal/auth"
	"github.com/franciscosanchezn/gin-user-api/internal/cache"
	"github.com/franciscosanchezn/gin-user-api/internal/config"
	"github.com/franciscosanchezn/gin-user-api/internal/controllers"
	"github.com/franciscosanchezn/gin-user-api/internal/database"
	"github.com/franciscosanchezn/gin-user-api/internal/middleware"
	"github.com/franciscosanchezn/gin-user-api/internal/observability"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const serviceName = "gin-user-api"

// tokenPurgeInterval is how often expired OAuth tokens are removed
const tokenPurgeInterval = 15 * time.Minute

// @title User API
// @version 1.0
// @description User management API with token and basic authentication
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
// @securityDefinitions.basic BasicAuth
func main() {
	// Load environment variables
	loadDotenvFile()

	// Load configuration
	configuration := loadConfig()

	// Initialize logger
	setUpLogger(configuration)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := setupTracing(ctx, configuration)

	// Initialize database connection
	db, err := database.InitDatabase(database.FromConfig(configuration))
	checkPanicErr(err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(registry, registry)

	// Initialize services
	profileCache, closeCache := setupCache(ctx, configuration)
	defer closeCache()

	userService := services.NewCachedUserService(services.NewUserService(db), profileCache, prom)
	clientService := services.NewClientService(db)
	tokens := auth.NewTokenManager(configuration.JWTSecret, configuration.TokenTTL)
	oauthService := auth.NewOAuthService(db, userService, tokens)

	seedDatabase(ctx, configuration, userService, clientService)
	go purgeExpiredTokens(ctx, oauthService.TokenStore())

	// Initialize Gin router
	router := setupRouter(configuration, db, userService, clientService, tokens, oauthService, prom)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", configuration.Host, configuration.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start the server
	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.WithError(err).Error("Tracer shutdown failed")
	}
	log.Info("Shutdown complete")
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment.
// LOG_LEVEL, when it parses, wins over the environment default
func setUpLogger(conf *config.Config) {
	log.SetFormatter(&log.JSONFormatter{})
	level := config.LevelForEnvironment(conf.Environment)
	if os.Getenv("LOG_LEVEL") != "" {
		if parsed, err := log.ParseLevel(conf.LogLevel); err == nil {
			level = parsed
		}
	}

	log.SetLevel(level)
	middleware.SetLogLevel(level)
	controllers.SetLogLevel(level)
	if conf.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupTracing starts the OTLP exporter when an endpoint is configured
func setupTracing(ctx context.Context, conf *config.Config) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if conf.OTLPEndpoint == "" {
		return noop
	}

	shutdown, err := observability.InitTracer(ctx, serviceName, conf.OTLPEndpoint)
	if err != nil {
		log.WithError(err).Warn("Tracing disabled")
		return noop
	}
	log.WithField("endpoint", conf.OTLPEndpoint).Info("Tracing enabled")
	return shutdown
}

// setupCache picks Redis when REDIS_URL is set and an in-process cache otherwise
func setupCache(ctx context.Context, conf *config.Config) (cache.Cache, func()) {
	if conf.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, conf.RedisURL, conf.CacheTTL)
		if err == nil {
			log.Info("Using Redis profile cache")
			return redisCache, func() { redisCache.Close() }
		}
		log.WithError(err).Warn("Redis unavailable, falling back to in-memory cache")
	}
	return cache.NewMemory(conf.CacheTTL), func() {}
}

// seedDatabase creates the configured admin account and first-party OAuth client
func seedDatabase(ctx context.Context, conf *config.Config, users services.UserService, clients services.ClientService) {
	if conf.AdminEmail == "" || conf.AdminPassword == "" {
		log.Debug("No admin account configured, skipping seed")
		return
	}

	admin, err := services.SeedAdmin(ctx, users, conf.AdminEmail, conf.AdminPassword)
	checkPanicErr(err)

	if conf.OAuthClientID != "" && conf.OAuthClientSecret != "" {
		_, err := services.SeedClient(ctx, clients, conf.OAuthClientID, conf.OAuthClientSecret, admin.ID)
		checkPanicErr(err)
	}
}

// purgeExpiredTokens removes expired OAuth tokens until ctx is done
func purgeExpiredTokens(ctx context.Context, store *auth.GormTokenStore) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpired(ctx, now)
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired tokens")
				continue
			}
			if n > 0 {
				log.WithField("count", n).Debug("Purged expired tokens")
			}
		}
	}
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter(conf *config.Config, db *gorm.DB, users services.UserService, clients services.ClientService,
	tokens *auth.TokenManager, oauthService *auth.OAuthService, prom *observability.Prom) *gin.Engine {
	return controllers.NewRouter(controllers.RouterConfig{
		ServiceName: serviceName,
		Users:       users,
		Clients:     clients,
		Tokens:      tokens,
		OAuth:       oauthService,
		Prom:        prom,
		HealthCheck: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		UserController: controllers.UserControllerConfig{
			DefaultPageSize:   conf.DefaultPageSize,
			MaxPageSize:       conf.MaxPageSize,
			AllowRoleOnSignup: conf.AllowRoleOnSignup,
		},
		RateLimitRPS:   conf.RateLimitRPS,
		RateLimitBurst: conf.RateLimitBurst,
		Tracing:        conf.OTLPEndpoint != "",
		Swagger:        conf.Environment != "production",
	})
}

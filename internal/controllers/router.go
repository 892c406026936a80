package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-user-api/internal/auth"
	"github.com/franciscosanchezn/gin-user-api/internal/middleware"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/observability"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig carries everything the HTTP layer is built from
type RouterConfig struct {
	ServiceName string
	Users       services.UserService
	Clients     services.ClientService
	Tokens      *auth.TokenManager
	OAuth       *auth.OAuthService
	// Prom is optional; without it /metrics is not served
	Prom *observability.Prom
	// HealthCheck is optional and reports whether the backing store is reachable
	HealthCheck func(ctx context.Context) error

	UserController UserControllerConfig
	RateLimitRPS   int
	RateLimitBurst int
	Tracing        bool
	Swagger        bool
}

// NewRouter initializes the Gin router and sets up the routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	if cfg.Tracing {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	var recorder middleware.FailureRecorder
	if cfg.Prom != nil {
		router.Use(cfg.Prom.GinHandleMiddleware())
		router.GET("/metrics", cfg.Prom.Handler())
		recorder = cfg.Prom
	}

	tokenCredential := auth.TokenCredential{Tokens: cfg.Tokens, Users: cfg.Users}
	passwordCredential := auth.PasswordCredential{Users: cfg.Users}

	requireToken := middleware.Authenticate(tokenCredential, recorder)
	requirePassword := middleware.Authenticate(passwordCredential, recorder)
	optionalToken := middleware.OptionalAuthenticate(tokenCredential)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)
	// one shared budget for every credential checking endpoint
	limit := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	userController := NewUserController(cfg.Users, cfg.UserController)
	authController := NewAuthController(cfg.Users, cfg.Tokens)

	router.GET("/health", healthCheckHandler(cfg.ServiceName, cfg.HealthCheck))

	if cfg.OAuth != nil {
		router.POST("/oauth/token", limit, cfg.OAuth.HandleToken)
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth", limit, requirePassword, authController.Login)

		users := v1.Group("/users")
		{
			users.GET("", requireToken, userController.ListUsers)
			users.GET("/me", requireToken, userController.GetMe)
			users.GET("/:id", userController.GetUser)
			users.POST("", optionalToken, userController.CreateUser)
			users.PUT("/me", requireToken, userController.UpdateMe)
			users.PUT("/me/password", limit, requirePassword, userController.UpdateMyPassword)
			users.PUT("/:id", requireToken, userController.UpdateUser)
			users.PUT("/:id/password", limit, requirePassword, userController.UpdatePassword)
			users.DELETE("/:id", requireToken, userController.DeleteUser)
		}

		if cfg.Clients != nil {
			clientController := NewClientController(cfg.Clients)
			clients := v1.Group("/clients")
			clients.Use(requireToken, requireAdmin)
			{
				clients.POST("", clientController.CreateClient)
				clients.GET("", clientController.ListClients)
				clients.DELETE("/:id", clientController.DeleteClient)
			}
		}
	}

	if cfg.Swagger {
		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return router
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service and its database are up
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(service string, check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.WithError(err).Warn("Health check failed")
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   service,
		})
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gideon-Phiri/secure-auth-service/internal/config"
	"github.com/Gideon-Phiri/secure-auth-service/internal/http/handler"
	"github.com/Gideon-Phiri/secure-auth-service/internal/http/middleware"
)

// NewRouter wires gin routes and middleware.
func NewRouter(
	cfg config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	authMiddleware *middleware.Auth,
	throttle *middleware.Throttle,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg))
	r.Use(throttle.Handler())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/verify-email", authHandler.VerifyEmail)
		auth.GET("/me", authMiddleware.RequireAuth, authHandler.Me)
	}

	users := r.Group("/users", authMiddleware.RequireAuth)
	{
		users.PUT("/me", userHandler.UpdateMe)
		users.DELETE("/me", userHandler.DeleteMe)

		admin := users.Group("", authMiddleware.RequireAdmin)
		{
			admin.GET("", userHandler.List)
			admin.POST("", userHandler.Create)
			admin.GET("/:id", userHandler.Get)
			admin.PUT("/:id", userHandler.Update)
			admin.DELETE("/:id", userHandler.Delete)
			admin.POST("/:id/activate", userHandler.Activate)
			admin.POST("/:id/deactivate", userHandler.Deactivate)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	return r
}

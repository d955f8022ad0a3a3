package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/service"
)

type RouterConfig struct {
	AuthService     *service.AuthService
	Store           Pinger
	Redis           *redis.Client
	RateLimitPerMin int
	AllowedOrigins  string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Observe(), CORSMiddleware(strings.Split(cfg.AllowedOrigins, ",")))

	r.GET("/healthz", Healthz(cfg.Store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewAuthHandler(cfg.AuthService)
	limited := RateLimit(cfg.Redis, cfg.RateLimitPerMin)

	auth := r.Group("/auth")
	{
		auth.POST("/google", limited, h.GoogleLogin)
		auth.POST("/register", limited, h.Register)
		auth.POST("/login", limited, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)

		protected := auth.Group("", AuthMiddleware(cfg.AuthService))
		{
			protected.GET("/me", h.Me)
			protected.PATCH("/onboarding", h.CompleteOnboarding)
		}
	}

	return r
}

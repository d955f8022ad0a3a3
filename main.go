package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/client"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/config"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/db"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/handler"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/log"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/metrics"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/queue"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := log.Init(cfg.DevMode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureAuthSchema(ctx); err != nil {
		logger.Fatal("auth schema", zap.Error(err))
	}

	verifier, err := newVerifier(ctx, cfg.Google)
	if err != nil {
		logger.Fatal("google verifier", zap.Error(err))
	}

	events := queue.NewNoop()
	if cfg.Queue.AMQPURL != "" {
		if events, err = queue.NewRabbit(cfg.Queue.AMQPURL, cfg.Queue.Exchange); err != nil {
			logger.Fatal("rabbitmq connect", zap.Error(err))
		}
	}
	defer events.Close()

	authService, err := service.NewAuthService(store, verifier, events, cfg.Auth)
	if err != nil {
		logger.Fatal("auth service", zap.Error(err))
	}

	if cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("admin seed", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthService:     authService,
		Store:           store,
		Redis:           rdb,
		RateLimitPerMin: cfg.Redis.RateLimitPerMin,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	logger.Info("auth backend listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newVerifier(ctx context.Context, cfg config.GoogleConfig) (service.IdentityVerifier, error) {
	switch cfg.VerifyMode {
	case "idtoken":
		return client.NewIDTokenVerifier(cfg.Audiences)
	default:
		return client.NewOIDCVerifier(ctx, cfg.Issuer, cfg.Audiences)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/token-security/internal/config"
	"github.com/tendant/token-security/internal/domain"
	httpserver "github.com/tendant/token-security/internal/http"
	"github.com/tendant/token-security/internal/notification"
	"github.com/tendant/token-security/internal/ratelimit"
	"github.com/tendant/token-security/internal/repository"
	"github.com/tendant/token-security/internal/token"
	"github.com/tendant/token-security/internal/totp"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	tokensRepo := repository.NewTokensRepository(db)
	subjectsRepo := repository.NewSubjectsRepository(db)

	// Attempt counters: Redis when configured, in-process otherwise
	var limiter ratelimit.Limiter
	if cfg.HasRedis() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb)
		logger.Info("redis attempt counters enabled")
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		logger.Warn("using in-memory attempt counters; configure REDIS_ADDR for multi-instance deployments")
	}

	// Notification dispatchers, one per token type
	dispatchers := notification.Registry{}
	if cfg.HasSMTP() {
		dispatchers[domain.TokenTypeEmail] = notification.NewEmailDispatcher(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email dispatcher enabled")
	}
	if cfg.HasSMS() {
		dispatchers[domain.TokenTypeSMS] = notification.NewSMSDispatcher(notification.SMSConfig{
			APIURL:    cfg.SMSAPIURL,
			APIKey:    cfg.SMSAPIKey,
			APISecret: cfg.SMSAPISecret,
			From:      cfg.SMSFrom,
		})
		logger.Info("sms dispatcher enabled")
	}

	totpVerifier := totp.NewVerifier()

	engine := token.NewEngine(token.Config{
		TokenTTL:     cfg.TokenTTL,
		MaxAttempts:  cfg.MaxAttempts,
		AttemptDecay: cfg.AttemptDecay,
	}, tokensRepo, limiter, dispatchers, totpVerifier, logger)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:       logger,
		Engine:       engine,
		SubjectsRepo: subjectsRepo,
		TOTPVerifier: totpVerifier,
		TOTPIssuer:   cfg.TOTPIssuer,
		JWTSecret:    []byte(cfg.JWTSecret),
		JWTIssuer:    cfg.JWTIssuer,
		App:          *cfg,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

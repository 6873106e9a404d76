package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	chatapp "github.com/textcircle/backend/internal/chat/app"
	chatpg "github.com/textcircle/backend/internal/chat/repository/postgres"
	poolapp "github.com/textcircle/backend/internal/numberpool/app"
	poolpg "github.com/textcircle/backend/internal/numberpool/repository/postgres"
	otpapp "github.com/textcircle/backend/internal/otp/app"
	otpdomain "github.com/textcircle/backend/internal/otp/domain"
	otppg "github.com/textcircle/backend/internal/otp/repository/postgres"
	otpredis "github.com/textcircle/backend/internal/otp/repository/redis"
	"github.com/textcircle/backend/internal/platform/config"
	"github.com/textcircle/backend/internal/platform/database"
	"github.com/textcircle/backend/internal/platform/logger"
	"github.com/textcircle/backend/internal/platform/messagebroker"
	"github.com/textcircle/backend/internal/smsprovider"
	httptransport "github.com/textcircle/backend/internal/transport/http"
)

const serviceName = "textcircle"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("TextCircle service starting...", "port", cfg.ServerPort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	// NATS is optional: an empty URL disables event publishing entirely.
	var natsClient messagebroker.NATSClient
	if cfg.NATSUrl != "" {
		client, err := messagebroker.NewClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		natsClient = client
		appLogger.Info("Connected to NATS", "url", cfg.NATSUrl)
	} else {
		appLogger.Info("NATS URL not configured, event publishing disabled")
	}

	// Outbound SMS adapter. Mock mode logs instead of sending and fixes the
	// OTP code, which is what local and CI runs want.
	var smsAdapter smsprovider.Adapter
	if cfg.MockSMS {
		smsAdapter = smsprovider.NewMockAdapter(appLogger)
	} else {
		smsAdapter = smsprovider.NewTwilioAdapter(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	}
	appLogger.Info("Outbound SMS adapter ready", "provider", smsAdapter.GetName())

	// OTP challenge store: postgres by default, redis when configured.
	var challengeStore otpdomain.ChallengeRepository
	switch cfg.OTPStore {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			appLogger.Error("Failed to connect to Redis", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		defer redisClient.Close()
		challengeStore = otpredis.NewRedisChallengeRepository(redisClient, appLogger)
		appLogger.Info("OTP challenges stored in Redis", "addr", cfg.RedisAddr)
	default:
		challengeStore = otppg.NewPgChallengeRepository(dbPool, appLogger)
	}

	// Repositories.
	numberRepo := poolpg.NewPgPhoneNumberRepository(dbPool, appLogger)
	userRepo := chatpg.NewPgUserRepository(dbPool, appLogger)
	groupRepo := chatpg.NewPgGroupRepository(dbPool, appLogger)
	membershipRepo := chatpg.NewPgMembershipRepository(dbPool, appLogger)
	messageRepo := chatpg.NewPgMessageRepository(dbPool, appLogger)

	// Services.
	poolService := poolapp.NewPoolService(numberRepo, appLogger)
	otpService := otpapp.NewOtpService(challengeStore, smsAdapter, otpapp.Config{
		CodeLength: cfg.OTPCodeLength,
		TTL:        time.Duration(cfg.OTPTTLSeconds) * time.Second,
		MockMode:   cfg.MockSMS,
		FromNumber: cfg.DefaultSharedNumber,
	}, appLogger)
	dispatcher := chatapp.NewDispatcher(messageRepo, membershipRepo, groupRepo, userRepo, smsAdapter, natsClient, cfg.DefaultSharedNumber, appLogger)
	groupService := chatapp.NewGroupService(groupRepo, membershipRepo, userRepo, messageRepo, poolService, dispatcher, cfg.MaxGroupsPerUser, appLogger)
	userService := chatapp.NewUserService(userRepo, otpService, natsClient, chatapp.TokenConfig{
		Secret:      cfg.JWTAccessSecret,
		ExpiryHours: cfg.JWTAccessExpiryHours,
	}, appLogger)
	smsRouter := chatapp.NewRouter(numberRepo, userRepo, membershipRepo, appLogger)

	// Transport.
	validate := validator.New()
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Auth:      httptransport.NewAuthHandler(userService, appLogger, validate),
		Users:     httptransport.NewUserHandler(userService, appLogger),
		Groups:    httptransport.NewGroupHandler(groupService, appLogger, validate),
		Admin:     httptransport.NewAdminHandler(poolService, appLogger, validate),
		Webhook:   httptransport.NewWebhookHandler(smsRouter, dispatcher, groupService, smsAdapter, appLogger),
		JWTSecret: cfg.JWTAccessSecret,
		Logger:    appLogger,
	})

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("API server listening on port %d", cfg.ServerPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("Metrics server listening on port %d", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutdown signal received, draining...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("API server shutdown failed", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("TextCircle service shut down.")
}

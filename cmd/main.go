package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concord/internal/app/hub"
	"concord/internal/app/registry"
	"concord/internal/app/server"
	"concord/internal/app/server/handlers"
	"concord/internal/config"
	"concord/internal/core/services"
	"concord/internal/platform/logger"
	"concord/internal/platform/telemetry"
	"concord/internal/plugins/postgres"
	redisPlugin "concord/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	serverRepo := postgres.NewServerRepo(pdb)
	channelRepo := postgres.NewChannelRepo(pdb)
	messageRepo := postgres.NewMessageRepo(pdb)
	memberRepo := postgres.NewMembershipRepo(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb)
	txManager := postgres.NewTxManager(pdb)

	// Fanout core
	reg := registry.NewRegistry()
	gate := services.NewGateService(log, memberRepo)
	serverHub := hub.NewHub(log, gate, reg)
	profileHub := hub.NewHub(log, hub.OpenGate{}, reg)
	dispatch := services.NewDispatchService(log, serverHub, profileHub)

	// Core services
	tokenSvc := services.NewTokenService(cfg.JWTSecret)
	userSvc := services.NewUserService(log, userRepo, txManager, dispatch)
	serverSvc := services.NewServerService(log, serverRepo, channelRepo, memberRepo, txManager, dispatch, serverHub, presStore)
	channelSvc := services.NewChannelService(log, serverRepo, channelRepo, memberRepo, txManager, dispatch)
	messageSvc := services.NewMessageService(log, messageRepo, memberRepo, txManager, dispatch)
	memberSvc := services.NewMemberService(log, serverRepo, memberRepo, userRepo, txManager, dispatch, serverHub)

	// Handlers
	authHandler := handlers.NewAuthHandler(userSvc, tokenSvc)
	apiHandler := handlers.NewAPIHandler(serverSvc, channelSvc, messageSvc, memberSvc, userSvc, presStore)
	wsHandler := handlers.NewWSHandler(
		reg, serverHub, profileHub, memberSvc, presStore,
		cfg.Presence.HeartbeatInterval, cfg.Presence.OnlineTTL,
	)

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, authHandler, apiHandler, wsHandler, tokenSvc)
	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", "err", err)
	}
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdms/donor-directory/internal/api"
	"github.com/bdms/donor-directory/internal/infrastructure/config"
	mongodb "github.com/bdms/donor-directory/internal/infrastructure/db/mongo"
	redisdb "github.com/bdms/donor-directory/internal/infrastructure/db/redis"
	"github.com/bdms/donor-directory/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	// The unique indexes back the handle/email uniqueness invariants; the
	// service must not take writes before they exist.
	if err := mongodb.NewDonorRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	e := api.NewRouter(db, rdb, api.RouterOptions{
		JWTSecret:   cfg.JWTSecret,
		AdminKey:    cfg.AdminKey,
		TokenTTL:    cfg.TokenTTL,
		LoginLimit:  cfg.Login.RateLimit,
		LoginWindow: cfg.Login.RateWindow,
		Logger:      log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("donor directory listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

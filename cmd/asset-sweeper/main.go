package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/princekumarofficial/video-service/internal/cache"
	"github.com/princekumarofficial/video-service/internal/config"
	"github.com/princekumarofficial/video-service/internal/services/media"
	"github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/storage/postgres"
	"github.com/princekumarofficial/video-service/internal/sweeper"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer storage.Close()

	mediaService, err := media.NewService(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage: ", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// removals invalidate cached videos
	cached := cache.NewCacheService(storage, redisClient)
	mirror := videos.NewMirror(mediaService, cfg.Mux.ImageBaseURL, logger)
	cleanup := videos.NewCleanup(cached, mirror, nil, logger)

	sweeper.New(storage, mediaService, cleanup, cfg.Sweeper, logger).Start(ctx)

	slog.Info("Asset sweeper stopped")
}

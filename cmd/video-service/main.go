package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/princekumarofficial/video-service/docs"
	"github.com/princekumarofficial/video-service/internal/cache"
	"github.com/princekumarofficial/video-service/internal/config"
	"github.com/princekumarofficial/video-service/internal/events"
	"github.com/princekumarofficial/video-service/internal/http/handlers/media"
	"github.com/princekumarofficial/video-service/internal/http/handlers/users"
	"github.com/princekumarofficial/video-service/internal/http/handlers/videos"
	"github.com/princekumarofficial/video-service/internal/http/handlers/webhooks"
	wsHandler "github.com/princekumarofficial/video-service/internal/http/handlers/websocket"
	"github.com/princekumarofficial/video-service/internal/http/middleware"
	"github.com/princekumarofficial/video-service/internal/locker"
	mediaService "github.com/princekumarofficial/video-service/internal/services/media"
	"github.com/princekumarofficial/video-service/internal/services/mux"
	videoService "github.com/princekumarofficial/video-service/internal/services/videos"
	"github.com/princekumarofficial/video-service/internal/storage/postgres"
	"github.com/princekumarofficial/video-service/internal/websocket"
)

// @title Video Service API
// @version 1.0
// @description Direct uploads, transcoder webhooks and mirrored thumbnails for creator videos.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// database setup
	storage, err := postgres.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer storage.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	slog.Info("Connected to Redis")

	objects, err := mediaService.NewService(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage: ", err)
	}
	transcoder := mux.NewClient(&cfg.Mux)

	cacheService := cache.NewCacheService(storage, redisClient)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	publisher := events.NewEventPublisher(hub)

	opts := videoService.ReconcilerOptions{
		Locker:   locker.NewRedisLocker(redisClient),
		Notifier: publisher,
		Logger:   logger,
	}
	mirror := videoService.NewMirror(objects, cfg.Mux.ImageBaseURL, logger)
	cleanup := videoService.NewCleanup(cacheService, mirror, publisher, logger)
	reconciler := videoService.NewReconciler(cacheService, transcoder, mirror, cleanup, opts)
	studio := videoService.NewStudio(cacheService, objects, mirror, opts)
	uploader := videoService.NewUploader(cacheService, transcoder, cfg.Mux.CORSOrigin, logger)

	webhookHandler, err := webhooks.New(reconciler, webhooks.Options{
		Secret:     cfg.Mux.WebhookSecret,
		Tolerance:  cfg.Mux.SignatureTolerance,
		Deliveries: cacheService,
		Logger:     logger,
	})
	if err != nil {
		log.Fatal("Failed to initialize webhook handler: ", err)
	}

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)
	limits := middleware.NewRateLimitConfig(redisClient, cfg.RateLimit)
	limited := func(action string, h http.Handler) http.Handler {
		return auth(limits.RateLimitMiddleware(action)(h))
	}
	thumbnails := media.NewMediaHandlers(studio)

	// setup router
	router := http.NewServeMux()

	router.HandleFunc("POST /signup", users.SignUp(storage))
	router.HandleFunc("POST /login", users.Login(storage, cfg.JWTSecret))

	router.Handle("POST /webhooks/mux", webhookHandler)

	router.Handle("POST /studio/videos", limited(middleware.ActionUploads, videos.CreateUpload(uploader)))
	router.Handle("GET /studio/videos", auth(videos.ListStudioVideos(studio)))
	router.Handle("PATCH /studio/videos/{id}", limited(middleware.ActionWrites, videos.UpdateVideo(studio)))
	router.Handle("DELETE /studio/videos/{id}", limited(middleware.ActionWrites, videos.DeleteVideo(cleanup)))
	router.Handle("POST /studio/videos/{id}/revalidate", limited(middleware.ActionWrites, videos.RevalidateVideo(reconciler)))
	router.Handle("POST /studio/videos/{id}/thumbnail/restore", limited(middleware.ActionWrites, thumbnails.RestoreThumbnail()))
	router.Handle("POST /studio/videos/{id}/thumbnail/upload-url", limited(middleware.ActionWrites, thumbnails.GenerateUploadURL()))
	router.Handle("POST /studio/videos/{id}/thumbnail/confirm", limited(middleware.ActionWrites, thumbnails.ConfirmUpload()))

	router.Handle("GET /videos", videos.ListVideos(studio))
	router.Handle("GET /videos/{id}", optionalAuth(videos.GetVideo(studio)))

	router.HandleFunc("GET /ws", wsHandler.WebSocketHandler(hub, cfg.JWTSecret, cfg.Mux.CORSOrigin))

	router.Handle("GET /admin/cache/stats", auth(cache.GetCacheStats(redisClient)))
	router.Handle("DELETE /admin/cache", auth(cache.ClearCache(redisClient)))

	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	slog.Info("server started", slog.String("address", cfg.HTTPServer.Address))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}
	cancel()

	slog.Info("Server stopped")
}

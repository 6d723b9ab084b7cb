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
	"github.com/princekumarofficial/imgbed/internal/cache"
	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/pages"
	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/http/router"
	"github.com/princekumarofficial/imgbed/internal/metrics"
	"github.com/princekumarofficial/imgbed/internal/services/media"
	"github.com/princekumarofficial/imgbed/internal/services/shortlink"
	"github.com/princekumarofficial/imgbed/internal/services/upload"
	"github.com/princekumarofficial/imgbed/internal/services/usage"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/storage/memory"
	"github.com/princekumarofficial/imgbed/internal/storage/postgres"
	"github.com/princekumarofficial/imgbed/internal/utils/password"
)

func main() {
	// load config
	cfg := config.MustLoad()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// storage setup
	store, blobs, closeStore := openStorage(cfg)
	defer closeStore()

	// redis is optional
	var (
		redisClient *redis.Client
		respCache   cache.ResponseCache = cache.Nop{}
	)
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		respCache = cache.NewRedisCache(redisClient)
		slog.Info("Connected to Redis", slog.String("address", cfg.Redis.Address))
	} else {
		slog.Warn("Redis not configured, response caching and rate limiting are off")
	}

	checker, err := password.NewChecker(cfg.Auth.Password)
	if err != nil {
		log.Fatal("Failed to prepare password checker:", err)
	}
	if cfg.Auth.Enabled && !cfg.AuthEnabled() {
		slog.Warn("ENABLE_AUTH is set but PASSWORD is empty, authentication is off")
	}

	usageSvc := usage.NewService(cfg, nil)
	m := metrics.New()

	rt := router.New(router.Deps{
		Config:     cfg,
		Store:      store,
		Blobs:      blobs,
		Cache:      respCache,
		Usage:      usageSvc,
		Uploads:    upload.NewService(blobs, store, usageSvc, cfg.Domain, cfg.MaxUploadBytes()),
		ShortLinks: shortlink.NewService(store, cfg.Domain),
		Checker:    checker,
		Renderer:   pages.NewRenderer(),
		Limits:     middleware.NewRateLimitConfig(redisClient, cfg.RateLimit),
		Metrics:    m,
	})

	servers := []*http.Server{{
		Addr:    cfg.HTTPServer.Address,
		Handler: rt.Handler(),
	}}
	if cfg.HTTPServer.MetricsAddress != "" {
		servers = append(servers, &http.Server{
			Addr:    cfg.HTTPServer.MetricsAddress,
			Handler: m.Handler(),
		})
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for _, server := range servers {
		go func(server *http.Server) {
			slog.Info("server started", slog.String("address", server.Addr))
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start server: %s", err)
			}
		}(server)
	}

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("failed to gracefully shutdown server", slog.String("address", server.Addr), slog.String("error", err.Error()))
		}
	}

	slog.Info("Server stopped")
}

func openStorage(cfg *config.Config) (storage.Storage, storage.BlobStore, func()) {
	if cfg.Storage.Driver == "memory" {
		slog.Warn("Using in-memory storage, nothing will persist")
		return memory.NewStore(), memory.NewBlobStore(), func() {}
	}

	pg, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	blobs, err := media.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	slog.Info("Connected to object storage", slog.String("bucket", cfg.R2.BucketName))

	return pg, blobs, func() { pg.Close() }
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mixmaster/admin"
	"mixmaster/api"
	"mixmaster/auth"
	"mixmaster/catalog"
	"mixmaster/config"
	"mixmaster/db"
	"mixmaster/globals"
	"mixmaster/media"
	"mixmaster/middleware"
	"mixmaster/ratelim"
	"mixmaster/rdx"
	"mixmaster/routes"

	"github.com/alexedwards/scs/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Println("⚠️ Using in-memory store; data is lost on restart")
		return db.NewMemoryStore(), nil
	}
	return db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
}

func openMedia(ctx context.Context, cfg *config.Config) (media.Store, error) {
	if cfg.MediaDriver == config.MediaS3 {
		return media.NewS3Store(ctx, media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		})
	}
	return media.NewFSStore(cfg.MediaDir, cfg.MediaBaseURL)
}

func newSessions(cfg *config.Config) *scs.SessionManager {
	sessions := scs.New()
	sessions.Lifetime = cfg.SessionLifetime
	sessions.Cookie.Name = "mixmaster_admin"
	sessions.Cookie.Path = admin.Prefix
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.SessionCookieSecure
	return sessions
}

// setupRouter builds the router with every route mounted.
func setupRouter(deps routes.Deps) *httprouter.Router {
	router := httprouter.New()
	routes.RoutesWrapper(router, deps)
	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	globals.JwtSecret = []byte(cfg.JWTSecret)

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}

	var limiter ratelim.Limiter = ratelim.NewRateLimiter(cfg.RateLimitPerMinute)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = rdx.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, falling back to in-process limits: %v", err)
		} else {
			limiter = ratelim.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute)
			auth.Revocations = auth.NewRedisDenylist(redisClient)
		}
	}

	blobs, err := openMedia(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open media store: %v", err)
	}

	cat := catalog.New(store)
	site, err := admin.New(cat, newSessions(cfg))
	if err != nil {
		log.Fatalf("❌ Failed to build admin site: %v", err)
	}

	deps := routes.Deps{
		API:     api.New(cat, blobs, cfg.PublicBaseURL),
		Auth:    &auth.Handler{Store: store, TTL: cfg.TokenTTL},
		Admin:   site,
		Limiter: limiter,
	}
	if cfg.MediaDriver == config.MediaFS && strings.HasPrefix(cfg.MediaBaseURL, "/") {
		deps.MediaURL = strings.TrimSuffix(cfg.MediaBaseURL, "/")
		deps.MediaDir = cfg.MediaDir
	}
	router := setupRouter(deps)

	// apply middleware: request id → logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := middleware.RequestID(middleware.Logging(middleware.SecurityHeaders(corsHandler)))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Closing store and cache connections...")
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Printf("⚠️ Store close: %v", err)
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("⚠️ Redis close: %v", err)
			}
		}
	})

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	// wait for interrupt or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}

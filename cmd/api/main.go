package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"authgrid.org/internal/audit"
	"authgrid.org/internal/auth"
	"authgrid.org/internal/cache"
	"authgrid.org/internal/config"
	"authgrid.org/internal/httpapi"
	"authgrid.org/internal/logger"
	"authgrid.org/internal/obs"
	"authgrid.org/internal/rbac"
	"authgrid.org/internal/store/pg"
	"authgrid.org/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("load config", "error", err)
	}

	obs.Init()

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalw("connect postgres", "error", err)
	}
	defer store.Close()

	// Redis when configured, in-process LRU otherwise.
	var backend cache.Cache
	if cfg.RedisAddr != "" {
		redis, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalw("connect redis", "error", err)
		}
		defer redis.Close()
		backend = redis
		log.Infow("cache backend", "kind", "redis", "addr", cfg.RedisAddr)
	} else {
		memory, err := cache.NewMemory(cfg.CacheMaxItems)
		if err != nil {
			log.Fatalw("init cache", "error", err)
		}
		backend = memory
		log.Infow("cache backend", "kind", "memory", "max_items", cfg.CacheMaxItems)
	}

	inval := cache.NewInvalidator(backend, log)

	svc, err := rbac.NewService(store, backend, inval, cfg.CacheTTL, auth.HashPassword, log)
	if err != nil {
		log.Fatalw("init rbac service", "error", err)
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Seed(seedCtx, rbac.SeedConfig{
		AdminEmail:    cfg.BootstrapAdminEmail,
		AdminPassword: cfg.BootstrapAdminPassword,
	}); err != nil {
		cancelSeed()
		log.Fatalw("seed defaults", "error", err)
	}
	cancelSeed()

	issuer, err := auth.NewIssuer(svc, cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatalw("init token issuer", "error", err)
	}
	validator, err := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatalw("init token validator", "error", err)
	}
	verifier, err := auth.NewVerifier(svc, log)
	if err != nil {
		log.Fatalw("init credential verifier", "error", err)
	}

	api, err := httpapi.New(httpapi.Options{
		RBAC:      svc,
		Issuer:    issuer,
		Verifier:  verifier,
		Validator: validator,
		Telemetry: telemetry.NewService(store, log),
		Trail:     audit.New(log),
		Log:       log,
		Ready:     store.Ping,
		Config:    cfg,
	})
	if err != nil {
		log.Fatalw("init http api", "error", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("starting authgrid-api", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("stopped")
}

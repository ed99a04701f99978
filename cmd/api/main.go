package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compliance-platform/internal/admission"
	"compliance-platform/internal/audit"
	"compliance-platform/internal/auth"
	"compliance-platform/internal/config"
	"compliance-platform/internal/db"
	"compliance-platform/internal/httpapi"
	"compliance-platform/internal/metrics"
	"compliance-platform/internal/pricing"
	"compliance-platform/internal/reporting"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/cache"
	"compliance-platform/pkg/logger"
	"compliance-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	pg, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	if cfg.DB.AutoMigrate {
		if err := db.RunMigrations(rootCtx, pg); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	l1, err := cache.NewRistretto(cfg.Cache.L1MaxBytes)
	if err != nil {
		log.Error("cache init failed", "err", err)
		os.Exit(1)
	}
	defer l1.Close()
	priceCache := cache.NewTiered(l1, cache.NewRedis(rdb, "compliance:"), cfg.Cache.PriceTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Domain services
	recorder := audit.NewRecorder(audit.NewPostgresRepo(pg), m)
	recorder.MaxLimit = cfg.Audit.QueryMaxLimit

	wallets := wallet.NewService(wallet.NewPostgresStore(pg), m)
	tenants := tenant.NewService(tenant.NewPostgresRepo(pg), wallets, recorder, cfg.Billing.DefaultCurrency)
	priceRepo := pricing.NewCachedRepository(pricing.NewPostgresRepo(pg), priceCache, cfg.Cache.PriceTTL, m)
	prices := pricing.NewService(priceRepo, tenants, recorder)
	controller := admission.NewController(tenants, pricing.NewResolver(priceRepo), wallets, recorder, m)

	h := httpapi.Handlers{
		Auth:      authManager,
		Tenants:   tenants,
		Wallets:   wallets,
		Prices:    prices,
		Admission: controller,
		Audit:     recorder,
		Reports:   reporting.NewService(wallets),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		h:        h,
		authMW:   auth.RequireAccessToken(authManager, recorder),
		gatherer: reg,
		devLogin: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("shutdown complete")
}

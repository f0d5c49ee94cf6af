package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callrounded-manager/internal/alerts"
	"callrounded-manager/internal/auth"
	"callrounded-manager/internal/calendar"
	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/config"
	"callrounded-manager/internal/httpapi"
	"callrounded-manager/internal/knowledge"
	"callrounded-manager/internal/llm"
	"callrounded-manager/internal/notify"
	"callrounded-manager/internal/platform"
	"callrounded-manager/internal/reporting"
	"callrounded-manager/internal/store"
	"callrounded-manager/internal/templates"
	"callrounded-manager/pkg/logger"
	"callrounded-manager/pkg/metrics"
	"callrounded-manager/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn(".env not loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	ctx := logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var db *gorm.DB
	if cfg.DB.URL == "" {
		log.Warn("DATABASE_URL not set; running without a database")
	} else {
		db, err = store.Open(ctx, store.OpenConfig{
			URL:          cfg.DB.URL,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			Verbose:      cfg.App.Env == "local",
		})
		if err != nil {
			log.Error("database init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close(db) }()
		if err := store.Migrate(ctx, db); err != nil {
			log.Error("database migration failed", "err", err)
			os.Exit(1)
		}
	}
	st := store.New(db, store.WithOwnerOpenID(cfg.Owner.OpenID))
	if err := bootstrapOwner(ctx, st, cfg.Owner); err != nil {
		log.Error("owner bootstrap failed", "err", err)
		os.Exit(1)
	}

	// Redis is optional: without it there is no response cache and no LLM concurrency cap.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn("redis unavailable; continuing without cache", "err", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	sessions := auth.NewSessions(tokens, st, time.Now)

	events := notify.NewService(st)
	provider := platform.NewClient(cfg.Platform)
	if !provider.Enabled() {
		log.Warn("CALLROUNDED_API_KEY not set; platform sync disabled")
	}

	reportingOpts := []reporting.Option{reporting.WithWeeklyStore(st)}
	var scripter redis.Scripter
	if rdb != nil {
		reportingOpts = append(reportingOpts, reporting.WithCache(rdb, reporting.DefaultCacheTTL))
		scripter = rdb
	}

	var chat llm.Chatter
	if c, err := llm.NewChatClient(cfg.LLM); err != nil {
		log.Info("agent builder disabled", "reason", err)
	} else {
		chat = c
	}

	h := &httpapi.Handlers{
		Store:     st,
		Sessions:  sessions,
		Cookies:   auth.CookieOptions{Secure: cfg.App.CookieSecure},
		Calls:     calls.NewService(st),
		Knowledge: knowledge.NewService(st),
		Notify:    events,
		Alerts:    alerts.NewService(st, events, time.Now),
		Reporting: reporting.NewService(st, reportingOpts...),
		Calendar:  calendar.NewService(st, cfg.Location(), time.Now),
		Templates: templates.NewService(st),
		Platform:  provider,
		Syncer:    platform.NewSyncer(provider, st, events),
		Builder:   llm.NewAgentBuilder(chat, provider, scripter, cfg.LLM.MaxConcurrent),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	registerRoutes(r, h, auth.RequireAccessToken(sessions), st)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "database", st.Enabled(), "redis", rdb != nil)
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

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

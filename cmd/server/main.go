package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/api"
	"github.com/qs3c/brevity_server/internal/api/handler"
	"github.com/qs3c/brevity_server/internal/database"
	"github.com/qs3c/brevity_server/internal/pkg/blogger"
	"github.com/qs3c/brevity_server/internal/pkg/gemini"
	"github.com/qs3c/brevity_server/internal/pkg/metrics"
	"github.com/qs3c/brevity_server/internal/pkg/oauth"
	"github.com/qs3c/brevity_server/internal/pkg/oss"
	"github.com/qs3c/brevity_server/internal/pkg/pubsub"
	"github.com/qs3c/brevity_server/internal/pkg/ratelimit"
	"github.com/qs3c/brevity_server/internal/pkg/render"
	"github.com/qs3c/brevity_server/internal/pkg/secret"
	"github.com/qs3c/brevity_server/internal/pkg/session"
	"github.com/qs3c/brevity_server/internal/pkg/ws"
	"github.com/qs3c/brevity_server/internal/repository"
	"github.com/qs3c/brevity_server/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.Open(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer rdb.Close()
	log.Info("Redis connected")

	cipher, err := secret.NewCipher(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("Invalid encryption key: %v", err)
	}

	// 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db.DB)
	postRepo := repository.NewPostRepository(db.DB)

	// 外部服务
	googleOAuth := oauth.NewGoogleOAuth(cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret, cfg.OAuth.Google.RedirectURI)
	generator := gemini.NewClient(cfg.Generation.Endpoint, cfg.Generation.Model, &http.Client{Timeout: cfg.Generation.Timeout()})
	publisher := blogger.NewClient(cfg.Publishing.Endpoint)

	var archiver service.Archiver
	if cfg.Archive.Enabled {
		ossClient, err := oss.NewClient(&cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to init archive storage: %v", err)
		}
		archiver = ossClient
		log.WithField("bucket", cfg.Archive.BucketName).Info("Post archive enabled")
	}

	// 初始化 Service
	sessions := session.NewStore(rdb, cipher, cfg.Session.SessionMaxAge())
	authService := service.NewAuthService(userRepo, sessions, googleOAuth, oauth.NewStateStore(rdb), cfg)
	tokenService := service.NewTokenService(sessions, googleOAuth, recorder)
	quotaService := service.NewQuotaService(userRepo, postRepo, cfg.Server.Location())
	postService := service.NewPostService(postRepo)

	anon := cfg.RateLimit.Anonymous
	publishService := service.NewPublishService(service.PublishDeps{
		Quota:     quotaService,
		Tokens:    tokenService,
		Limiter:   ratelimit.NewLimiter(rdb, anon.KeyPrefix, anon.Limit, anon.Window()),
		Generator: generator,
		Publisher: publisher,
		Renderer:  render.New(),
		UserRepo:  userRepo,
		PostRepo:  postRepo,
		Cipher:    cipher,
		Archiver:  archiver,
		Observer:  service.NewProgressObserver(pubsub.NewPublisher(rdb)),
		Metrics:   recorder,
	}, cfg)

	// 进度推送：Redis -> WebSocket
	wsHub := ws.NewHub()
	metrics.RegisterConnectionGauge(registry, wsHub.ConnectionCount)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.CORS.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, websocketHandler.Relay); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Progress subscriber stopped")
		}
	}()

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService, tokenService, cfg),
		handler.NewPublishHandler(publishService, cfg),
		handler.NewPostHandler(postService, quotaService),
		websocketHandler,
		handler.NewHealthHandler(db, rdb),
		authService,
		metrics.Handler(registry),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	// 给进行中的发布留出完成时间
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout()+cfg.Publishing.Timeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}

func setupLogging(mode string) {
	if mode == "release" {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.DebugLevel)
}

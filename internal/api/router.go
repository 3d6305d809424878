package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/api/handler"
	"github.com/qs3c/brevity_server/internal/api/middleware"
)

type Router struct {
	authHandler      *handler.AuthHandler
	publishHandler   *handler.PublishHandler
	postHandler      *handler.PostHandler
	websocketHandler *handler.WebSocketHandler
	healthHandler    *handler.HealthHandler
	sessions         middleware.SessionResolver
	metrics          http.Handler
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	publishHandler *handler.PublishHandler,
	postHandler *handler.PostHandler,
	websocketHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	sessions middleware.SessionResolver,
	metrics http.Handler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		publishHandler:   publishHandler,
		postHandler:      postHandler,
		websocketHandler: websocketHandler,
		healthHandler:    healthHandler,
		sessions:         sessions,
		metrics:          metrics,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", r.healthHandler.Healthz)
	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	api := engine.Group("/api/v1")
	api.Use(middleware.Logger())
	api.Use(middleware.Session(r.sessions, r.cfg.Session.CookieName))
	{
		// 公开接口
		api.GET("/plans", handler.Plans)
		api.GET("/categories", handler.Categories)

		auth := api.Group("/auth")
		{
			auth.GET("/google", r.authHandler.GoogleAuth)
			auth.GET("/google/callback", r.authHandler.GoogleCallback)
			auth.GET("/status", r.authHandler.Status)
			auth.POST("/logout", r.authHandler.Logout)
			auth.GET("/token", r.authHandler.Token)
		}

		// 登录可选：未登录时走匿名频率限制
		api.POST("/posts/publish", r.publishHandler.Publish)

		// WebSocket 按会话推送进度
		api.GET("/ws", r.websocketHandler.Handle)

		// 需要登录的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.RequireSession())
		{
			authenticated.GET("/posts", r.postHandler.List)
			authenticated.GET("/user/usage", r.postHandler.Usage)
		}
	}

	return engine
}

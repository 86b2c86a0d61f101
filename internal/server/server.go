package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"slidecast/internal/config"
	"slidecast/internal/handler"
	slideshowHandler "slidecast/internal/handler/slideshow"
	"slidecast/internal/pkg/cache"
	"slidecast/internal/pkg/events"
	"slidecast/internal/pkg/mongodb"
	"slidecast/internal/server/middleware"
	"slidecast/internal/service/slideshow"

	_ "slidecast/docs"
)

// Deps 服务器依赖；Mongo、Redis 可选
type Deps struct {
	Service slideshow.Service
	Hub     *events.Hub
	Mongo   *mongodb.Client
	Redis   *cache.RedisCache
}

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	deps   Deps

	// 后台任务（批处理、渲染、事件流）的生命周期
	jobCtx    context.Context
	cancelJob context.CancelFunc
}

// New 创建服务器实例
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, errors.New("slideshow service is required")
	}

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:       cfg,
		engine:    gin.New(),
		deps:      deps,
		jobCtx:    jobCtx,
		cancelJob: cancel,
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	pingers := map[string]handler.Pinger{}
	if s.deps.Mongo != nil {
		pingers["mongo"] = s.deps.Mongo
	}
	if s.deps.Redis != nil {
		pingers["redis"] = s.deps.Redis
	}
	healthHandler := handler.NewHealthHandler(pingers)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		maxUpload := s.cfg.Server.MaxUploadMB << 20
		slideshowHdl := slideshowHandler.NewHandler(s.jobCtx, s.deps.Service, s.deps.Hub, maxUpload)
		slideshowHdl.RegisterRoutes(v1)
	}

	if s.deps.Mongo == nil {
		log.Warn().Msg("MongoDB not configured, export history disabled")
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
		s.cancelJob()
		if s.deps.Hub != nil {
			s.deps.Hub.Close()
		}

		// 关闭连接
		if s.deps.Mongo != nil {
			if err := s.deps.Mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.deps.Redis != nil {
			if err := s.deps.Redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		s.cancelJob()
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

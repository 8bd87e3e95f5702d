// Package web 对外暴露健康检查、状态API和tick实时推送
package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/metrics"
	"github.com/quantfleet/quantfleet-go/internal/observer"
	"github.com/quantfleet/quantfleet-go/internal/utils"
)

// StatusProvider 交易循环运行状态来源（由监督器实现）
type StatusProvider interface {
	Status() map[string]bool
}

// Server Web服务器
type Server struct {
	engine     *gin.Engine
	config     *config.Config
	logger     *zap.SugaredLogger
	sink       *observer.Sink
	supervisor StatusProvider
	redis      utils.RedisClient
	startedAt  time.Time

	statusMu     sync.RWMutex
	statusCache  gin.H
	statusCached time.Time
}

// NewServer 创建Web服务器
func NewServer(cfg *config.Config, sink *observer.Sink, supervisor StatusProvider, redis utils.RedisClient) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:     gin.New(),
		config:     cfg,
		logger:     utils.GetLogger("web"),
		sink:       sink,
		supervisor: supervisor,
		redis:      redis,
		startedAt:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.engine.Use(s.recoveryMiddleware())
	s.engine.Use(s.loggerMiddleware())
	s.engine.Use(s.metricsMiddleware())

	// 健康检查
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/readyz", s.handleReadyz)

	api := s.engine.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/ticks", s.handleTicks)
		api.GET("/metrics", s.handleMetrics)
	}

	// WebSocket实时推送
	s.engine.GET("/ws", s.handleWebSocket)
}

// Run 启动服务器，ctx取消时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	port := s.config.WebPort
	if port <= 0 {
		port = 8000
	}
	addr := fmt.Sprintf(":%d", port)
	s.logger.Infow("Web服务器启动", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Web服务器正在关闭...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// recoveryMiddleware 恢复中间件
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Errorw("请求处理panic",
					"error", err,
					"path", c.Request.URL.Path,
				)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggerMiddleware 日志中间件，只记录服务端错误
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			s.logger.Warnw("HTTP请求",
				"status", status,
				"method", c.Request.Method,
				"path", path,
				"latency", time.Since(start),
				"ip", c.ClientIP(),
			)
		}
	}
}

// metricsMiddleware 指标收集中间件
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.RecordHTTPRequest(c.Request.URL.Path, c.Writer.Status())
	}
}

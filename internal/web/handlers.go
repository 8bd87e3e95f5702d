package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantfleet/quantfleet-go/internal/metrics"
	"github.com/quantfleet/quantfleet-go/internal/utils"
)

// statusCacheTTL 状态快照的缓存时长，避免每个请求都触发汇总
const statusCacheTTL = 5 * time.Second

// handleHealthz 健康检查
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReadyz 就绪检查：验证Redis可达
func (s *Server) handleReadyz(c *gin.Context) {
	if s.redis != nil {
		ctx, cancel := utils.WithDefaultTimeout(c.Request.Context())
		defer cancel()

		if err := s.redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": "redis_unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// handleStatus 舰队运行状态快照
func (s *Server) handleStatus(c *gin.Context) {
	s.statusMu.RLock()
	if s.statusCache != nil && time.Since(s.statusCached) < statusCacheTTL {
		cached := s.statusCache
		s.statusMu.RUnlock()
		c.JSON(http.StatusOK, cached)
		return
	}
	s.statusMu.RUnlock()

	runners := map[string]bool{}
	alive := 0
	if s.supervisor != nil {
		runners = s.supervisor.Status()
		for _, ok := range runners {
			if ok {
				alive++
			}
		}
	}

	status := gin.H{
		"uptime_sec":    int64(time.Since(s.startedAt).Seconds()),
		"dry_run":       s.config.DryRun,
		"runners":       runners,
		"runners_alive": alive,
		"timestamp":     time.Now().UnixMilli(),
	}

	s.statusMu.Lock()
	s.statusCache = status
	s.statusCached = time.Now()
	s.statusMu.Unlock()

	c.JSON(http.StatusOK, status)
}

// handleTicks 最近的tick记录
func (s *Server) handleTicks(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	records, err := s.sink.RecentTicks(c.Request.Context(), limit)
	if err != nil {
		s.logger.Warnf("读取tick记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticks": records, "count": len(records)})
}

// handleMetrics 进程指标快照
func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetMetrics())
}

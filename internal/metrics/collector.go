// Package metrics 进程内性能与业务指标收集
package metrics

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/utils"
)

// Metrics 性能指标
type Metrics struct {
	mu sync.RWMutex

	// HTTP请求指标
	HTTPRequestsTotal    int64
	HTTPRequestsSuccess  int64
	HTTPRequestsError    int64
	HTTPRequestsByPath   map[string]int64
	HTTPRequestsByStatus map[int]int64

	// WebSocket指标
	WebSocketConnections  int64
	WebSocketMessagesSent int64
	WebSocketSendFailed   int64

	// 交易指标
	TicksProcessed int64
	SignalsBuy     int64
	SignalsSell    int64
	SignalsHold    int64
	OrdersPlaced   int64
	OrdersFailed   int64

	// 系统指标
	GoroutineCount int
	MemoryAlloc    uint64
	MemorySys      uint64
	NumGC          uint32

	LastUpdate time.Time
}

var globalMetrics = &Metrics{
	HTTPRequestsByPath:   make(map[string]int64),
	HTTPRequestsByStatus: make(map[int]int64),
}

// GetMetrics 获取当前指标快照
func GetMetrics() *Metrics {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	globalMetrics.GoroutineCount = runtime.NumGoroutine()
	globalMetrics.MemoryAlloc = m.Alloc
	globalMetrics.MemorySys = m.Sys
	globalMetrics.NumGC = m.NumGC
	globalMetrics.LastUpdate = time.Now()

	// 返回副本
	snapshot := Metrics{
		HTTPRequestsTotal:     globalMetrics.HTTPRequestsTotal,
		HTTPRequestsSuccess:   globalMetrics.HTTPRequestsSuccess,
		HTTPRequestsError:     globalMetrics.HTTPRequestsError,
		HTTPRequestsByPath:    make(map[string]int64, len(globalMetrics.HTTPRequestsByPath)),
		HTTPRequestsByStatus:  make(map[int]int64, len(globalMetrics.HTTPRequestsByStatus)),
		WebSocketConnections:  globalMetrics.WebSocketConnections,
		WebSocketMessagesSent: globalMetrics.WebSocketMessagesSent,
		WebSocketSendFailed:   globalMetrics.WebSocketSendFailed,
		TicksProcessed:        globalMetrics.TicksProcessed,
		SignalsBuy:            globalMetrics.SignalsBuy,
		SignalsSell:           globalMetrics.SignalsSell,
		SignalsHold:           globalMetrics.SignalsHold,
		OrdersPlaced:          globalMetrics.OrdersPlaced,
		OrdersFailed:          globalMetrics.OrdersFailed,
		GoroutineCount:        globalMetrics.GoroutineCount,
		MemoryAlloc:           globalMetrics.MemoryAlloc,
		MemorySys:             globalMetrics.MemorySys,
		NumGC:                 globalMetrics.NumGC,
		LastUpdate:            globalMetrics.LastUpdate,
	}
	for k, v := range globalMetrics.HTTPRequestsByPath {
		snapshot.HTTPRequestsByPath[k] = v
	}
	for k, v := range globalMetrics.HTTPRequestsByStatus {
		snapshot.HTTPRequestsByStatus[k] = v
	}
	return &snapshot
}

// RecordHTTPRequest 记录HTTP请求
func RecordHTTPRequest(path string, status int) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.HTTPRequestsTotal++
	if status >= 200 && status < 400 {
		globalMetrics.HTTPRequestsSuccess++
	} else {
		globalMetrics.HTTPRequestsError++
	}
	globalMetrics.HTTPRequestsByPath[path]++
	globalMetrics.HTTPRequestsByStatus[status]++
}

// RecordTick 记录一个tick信号结果
func RecordTick(action string) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.TicksProcessed++
	switch action {
	case "BUY":
		globalMetrics.SignalsBuy++
	case "SELL":
		globalMetrics.SignalsSell++
	default:
		globalMetrics.SignalsHold++
	}
}

// RecordOrder 记录下单结果
func RecordOrder(success bool) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	if success {
		globalMetrics.OrdersPlaced++
	} else {
		globalMetrics.OrdersFailed++
	}
}

// WebSocketConnected WebSocket连接计数
func WebSocketConnected(delta int64) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.WebSocketConnections += delta
}

// RecordWebSocketSend 记录WebSocket推送结果
func RecordWebSocketSend(success bool) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	if success {
		globalMetrics.WebSocketMessagesSent++
	} else {
		globalMetrics.WebSocketSendFailed++
	}
}

// SaveToRedis 保存指标快照到Redis
func SaveToRedis(ctx context.Context) error {
	snapshot := GetMetrics()

	data := map[string]interface{}{
		"timestamp": time.Now().Unix(),
		"http": map[string]interface{}{
			"requests_total":   snapshot.HTTPRequestsTotal,
			"requests_success": snapshot.HTTPRequestsSuccess,
			"requests_error":   snapshot.HTTPRequestsError,
			"by_path":          snapshot.HTTPRequestsByPath,
			"by_status":        snapshot.HTTPRequestsByStatus,
		},
		"websocket": map[string]interface{}{
			"connections":   snapshot.WebSocketConnections,
			"messages_sent": snapshot.WebSocketMessagesSent,
			"send_failed":   snapshot.WebSocketSendFailed,
		},
		"system": map[string]interface{}{
			"goroutines":   snapshot.GoroutineCount,
			"memory_alloc": snapshot.MemoryAlloc,
			"memory_sys":   snapshot.MemorySys,
			"num_gc":       snapshot.NumGC,
		},
		"trading": map[string]interface{}{
			"ticks_processed": snapshot.TicksProcessed,
			"signals_buy":     snapshot.SignalsBuy,
			"signals_sell":    snapshot.SignalsSell,
			"signals_hold":    snapshot.SignalsHold,
			"orders_placed":   snapshot.OrdersPlaced,
			"orders_failed":   snapshot.OrdersFailed,
		},
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	key := config.GetRedisKey("metrics:performance")
	return utils.GetRedisClient().Set(ctx, key, dataJSON, 5*time.Minute).Err()
}

// StartCollector 定期把指标快照刷入Redis，ctx取消时停止
func StartCollector(ctx context.Context) {
	logger := utils.GetLogger("metrics")

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	logger.Info("性能指标收集器启动")

	for {
		select {
		case <-ctx.Done():
			logger.Info("性能指标收集器停止")
			return
		case <-ticker.C:
			if err := SaveToRedis(ctx); err != nil {
				logger.Warnw("保存指标失败", "error", err)
			}
		}
	}
}

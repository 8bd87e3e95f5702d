// Package observer 把每个tick的结构化记录写入Redis列表并广播给
// 进程内订阅者（web层的websocket推送）。写入失败只记日志，
// 绝不影响交易主循环。
package observer

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/metrics"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// Sink 观测记录汇聚点
type Sink struct {
	redis       utils.RedisClient
	logger      *zap.SugaredLogger
	tickKey     string
	orderKey    string
	tickMaxLen  int64
	orderMaxLen int64

	mu          sync.RWMutex
	subscribers map[chan types.TickRecord]struct{}
}

var (
	sinkInstance *Sink
	sinkOnce     sync.Once
)

// GetSink 获取观测汇聚点（单例模式）
func GetSink() *Sink {
	sinkOnce.Do(func() {
		cfg := config.Get()
		sinkInstance = &Sink{
			logger:      utils.GetLogger("observer"),
			tickKey:     config.GetRedisKey("ticks"),
			orderKey:    config.GetRedisKey("orders"),
			tickMaxLen:  int64(cfg.TickHistoryMaxLen),
			orderMaxLen: int64(cfg.OrderHistoryMaxLen),
			subscribers: make(map[chan types.TickRecord]struct{}),
		}
	})
	return sinkInstance
}

// SetRedisClient 注入Redis客户端。未注入时只做进程内广播。
func (s *Sink) SetRedisClient(client utils.RedisClient) {
	s.mu.Lock()
	s.redis = client
	s.mu.Unlock()
}

// RecordTick 记录一个tick并广播给订阅者
func (s *Sink) RecordTick(ctx context.Context, record types.TickRecord) {
	metrics.RecordTick(record.Action)
	if record.Error != "" {
		metrics.RecordOrder(false)
	}
	s.push(ctx, s.tickKey, s.tickMaxLen, record)
	s.broadcast(record)
}

// RecordOrder 记录一个成交订单
func (s *Sink) RecordOrder(ctx context.Context, order *types.Order) {
	if order == nil {
		return
	}
	metrics.RecordOrder(true)
	s.push(ctx, s.orderKey, s.orderMaxLen, order)
}

// Subscribe 注册一个进程内订阅通道。返回取消函数，
// 订阅者退出时必须调用以免泄漏。
func (s *Sink) Subscribe() (<-chan types.TickRecord, func()) {
	ch := make(chan types.TickRecord, 64)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// RecentTicks 读取最近的tick记录（新在前）
func (s *Sink) RecentTicks(ctx context.Context, limit int64) ([]types.TickRecord, error) {
	s.mu.RLock()
	client := s.redis
	s.mu.RUnlock()
	if client == nil {
		return nil, nil
	}

	rows, err := client.LRange(ctx, s.tickKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]types.TickRecord, 0, len(rows))
	for _, row := range rows {
		var r types.TickRecord
		if err := json.Unmarshal([]byte(row), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Sink) push(ctx context.Context, key string, maxLen int64, v interface{}) {
	s.mu.RLock()
	client := s.redis
	s.mu.RUnlock()
	if client == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warnf("序列化观测记录失败: %v", err)
		return
	}
	if err := client.LPush(ctx, key, data).Err(); err != nil {
		s.logger.Warnf("写入观测记录失败 key=%s: %v", key, err)
		return
	}
	if maxLen > 0 {
		if err := client.LTrim(ctx, key, 0, maxLen-1).Err(); err != nil {
			s.logger.Warnf("裁剪观测记录失败 key=%s: %v", key, err)
		}
	}
}

// broadcast 非阻塞广播：慢订阅者丢弃消息而不是拖慢交易循环
func (s *Sink) broadcast(record types.TickRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- record:
		default:
		}
	}
}

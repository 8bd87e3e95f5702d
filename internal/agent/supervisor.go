package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/exchange"
	"github.com/quantfleet/quantfleet-go/internal/market"
	"github.com/quantfleet/quantfleet-go/internal/observer"
	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/internal/strategy"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// Supervisor 舰队监督器。为每个(代理,交易对)组合启动独立的Runner
// goroutine，共享一个套接字池和限流器（ExchangeClient内部共享）。
// Runner因认证故障退出后不会自动重启，人工修复凭证后重启进程。
type Supervisor struct {
	cfg    *config.Config
	sink   *observer.Sink
	logger *zap.SugaredLogger

	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]bool
}

// NewSupervisor 创建监督器
func NewSupervisor(cfg *config.Config, sink *observer.Sink, logger *zap.SugaredLogger) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		running: make(map[string]bool),
	}
}

// Start 加载代理清单并启动所有交易循环
func (s *Supervisor) Start(ctx context.Context) error {
	agents, err := config.GetSource().LoadAgents(ctx)
	if err != nil {
		return fmt.Errorf("加载代理配置失败: %w", err)
	}
	if len(agents) == 0 {
		return fmt.Errorf("没有可用的代理配置")
	}

	// 参考行情源只在有套利策略时创建
	var reference types.PriceFeed
	for _, a := range agents {
		if a.Strategy == strategy.KindArbitrage || a.Strategy == "arb" {
			reference = market.NewFeed(exchange.NewPublicClient(s.cfg.ArbReferenceURL))
			break
		}
	}

	interval := time.Duration(s.cfg.TickIntervalSec * float64(time.Second))

	for _, a := range agents {
		client := exchange.NewClient(a.Credentials)
		feed := market.NewFeed(exchange.NewPublicClient(s.cfg.ExchangeBaseURL))
		riskMgr := risk.NewManager(a.Limits)

		for _, symbol := range a.Symbols {
			strat, err := strategy.New(a.Strategy, symbol, s.cfg, reference)
			if err != nil {
				return fmt.Errorf("代理%s交易对%s: %w", a.ID, symbol, err)
			}

			runner := NewRunner(a.ID, symbol, client, feed, strat, riskMgr, s.sink, interval)
			key := a.ID + ":" + symbol

			s.mu.Lock()
			s.running[key] = true
			s.mu.Unlock()

			s.wg.Add(1)
			go s.runOne(ctx, key, runner)
		}
	}

	s.logger.Infof("监督器启动完成 代理数=%d", len(agents))
	return nil
}

// runOne 托管单个交易循环。panic只标记自身停止，兄弟循环不受影响。
func (s *Supervisor) runOne(ctx context.Context, key string, runner *Runner) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running[key] = false
		s.mu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Errorf("交易循环%s panic: %v", key, rec)
		}
	}()
	if err := runner.Run(ctx); err != nil {
		s.logger.Errorf("交易循环%s异常退出: %v", key, err)
	}
}

// Status 返回所有交易循环的运行状态快照
func (s *Supervisor) Status() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]bool, len(s.running))
	for k, v := range s.running {
		snapshot[k] = v
	}
	return snapshot
}

// Wait 阻塞直到所有交易循环退出
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

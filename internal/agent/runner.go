// Package agent 实现单个(代理,交易对)的交易循环和整个舰队的监督器
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantfleet/quantfleet-go/internal/exchange"
	"github.com/quantfleet/quantfleet-go/internal/observer"
	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/internal/strategy"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// Runner 单个(代理,交易对)的交易循环。每个tick按固定顺序执行：
// 取价格 → 取账户 → 生成信号 → 熔断检查 → 仓位约束 → 下单 → 记录。
// 传输故障和应用故障只影响当前tick；认证故障终止整个循环。
type Runner struct {
	agentID    string
	symbol     string
	client     types.ExchangeClient
	feed       types.PriceFeed
	strat      strategy.Strategy
	riskMgr    *risk.Manager
	sink       *observer.Sink
	logger     *zap.SugaredLogger
	interval   time.Duration
	peakEquity float64
}

// NewRunner 创建交易循环
func NewRunner(agentID, symbol string, client types.ExchangeClient, feed types.PriceFeed,
	strat strategy.Strategy, riskMgr *risk.Manager, sink *observer.Sink, interval time.Duration) *Runner {
	return &Runner{
		agentID:  agentID,
		symbol:   symbol,
		client:   client,
		feed:     feed,
		strat:    strat,
		riskMgr:  riskMgr,
		sink:     sink,
		logger:   utils.GetLogger(fmt.Sprintf("agent[%s:%s]", agentID, symbol)),
		interval: interval,
	}
}

// Run 执行交易循环直到ctx取消或遇到认证故障。
// 认证故障返回非nil错误，监督器不会自动重启。
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Infof("交易循环启动 策略=%s 间隔=%v", r.strat.Name(), r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.tick(ctx); err != nil {
			if exchange.IsAuthFault(err) {
				r.logger.Errorf("认证故障，终止交易循环: %v", err)
				return err
			}
			if ctx.Err() == nil {
				r.logger.Warnf("tick失败（下个周期重试）: %v", err)
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("交易循环退出")
			return nil
		case <-ticker.C:
		}
	}
}

// tick 执行一个完整周期。除了认证故障都被吸收为本tick失败。
// 每次交易所调用前检查ctx：取消在取价格/取账户/下单边界生效，
// 已发出的请求自然跑完或超时，不会中途掐断。
func (r *Runner) tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	price, err := r.feed.LastPrice(r.symbol)
	if err != nil {
		return fmt.Errorf("获取价格失败: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	account, err := r.client.GetAccountInfo()
	if err != nil {
		return fmt.Errorf("获取账户失败: %w", err)
	}
	if account.Equity > r.peakEquity {
		r.peakEquity = account.Equity
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	positions, err := r.client.GetPositions()
	if err != nil {
		return fmt.Errorf("获取持仓失败: %w", err)
	}

	signal := r.strat.GenerateSignal(price, account, positions)
	signal = r.applyRisk(signal, price, account)

	record := types.TickRecord{
		RecordID:   uuid.NewString(),
		AgentID:    r.agentID,
		Symbol:     r.symbol,
		Action:     signal.Action,
		Quantity:   signal.Quantity,
		Confidence: signal.Confidence,
		Reason:     signal.Reason,
		Timestamp:  types.NowMillis(),
	}

	if signal.Action == types.ActionBuy || signal.Action == types.ActionSell {
		if err := ctx.Err(); err != nil {
			return err
		}
		order, orderErr := r.placeOrder(signal)
		if orderErr != nil {
			// 下单失败不修改任何本地状态：下个tick交易所报告的
			// 持仓会如实反映未成交的事实
			record.Error = orderErr.Error()
			r.logger.Warnf("下单失败 %s %s 数量=%v: %v", signal.Action, r.symbol, signal.Quantity, orderErr)
		} else {
			record.OrderID = order.ID
			r.logger.Infof("下单成功 %s %s 数量=%v 订单=%s 理由=%s",
				signal.Action, r.symbol, signal.Quantity, order.ID, signal.Reason)
			r.sink.RecordOrder(ctx, order)
		}
		r.sink.RecordTick(ctx, record)
		if orderErr != nil && exchange.IsAuthFault(orderErr) {
			return orderErr
		}
		return nil
	}

	r.logger.Debugf("HOLD 置信度=%.2f 理由=%s", signal.Confidence, signal.Reason)
	r.sink.RecordTick(ctx, record)
	return nil
}

// applyRisk 风控闸门：先查熔断，再校验仓位大小。
// 任何风控拦截都把信号降级为HOLD，原因写进Reason——买入名义价值
// 超过权益上限时不做收紧，直接降级。
func (r *Runner) applyRisk(signal *types.TradeSignal, price float64, account *types.Account) *types.TradeSignal {
	if signal.Action != types.ActionBuy && signal.Action != types.ActionSell {
		return signal
	}

	cb := r.riskMgr.CheckCircuitBreaker(account.Equity, r.peakEquity)
	if cb.ShouldStop {
		r.logger.Warnf("熔断触发 回撤=%.2f%%: %s", cb.Drawdown, cb.Reason)
		return types.Hold(0, fmt.Sprintf("circuit breaker: %s", cb.Reason))
	}

	// 卖出是减仓动作，不受仓位上限约束
	if signal.Action == types.ActionSell {
		return signal
	}

	limits := r.riskMgr.Limits()
	notional := signal.Quantity * price
	maxNotional := account.Equity * limits.MaxPositionSizePercent / 100

	if notional > maxNotional {
		r.logger.Warnf("仓位超限 名义=%.2f 上限=%.2f，信号降级为HOLD", notional, maxNotional)
		return types.Hold(0, fmt.Sprintf("order notional %.2f exceeds cap %.2f", notional, maxNotional))
	}

	if err := r.riskMgr.ValidateOrderSize(notional, account.Equity); err != nil {
		return types.Hold(0, err.Error())
	}
	return signal
}

// placeOrder 把信号转换为市价单请求
func (r *Runner) placeOrder(signal *types.TradeSignal) (*types.Order, error) {
	req := types.OrderRequest{
		Symbol:    r.symbol,
		Side:      signal.Action,
		OrderType: "MARKET",
		Quantity:  signal.Quantity,
	}
	if signal.Action == types.ActionSell {
		req.ReduceOnly = true
	}
	return r.client.PlaceOrder(req)
}

package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// Strategy 策略通用契约。每个tick输入当前价格、账户快照和持仓，
// 输出一个TradeSignal。对预期内的输入永远不panic：价格或权益非法时
// 返回HOLD（置信度0）——这是可恢复的输入问题，不是故障。
type Strategy interface {
	Name() string
	GenerateSignal(currentPrice float64, account *types.Account, positions []types.Position) *types.TradeSignal
}

// 策略类型标识
const (
	KindGrid       = "grid"
	KindMomentum   = "momentum"
	KindMLSignal   = "ml"
	KindArbitrage  = "arbitrage"
	KindBuyAndHold = "buyhold"
)

// New 按配置分发策略实现。策略种类在AgentRunner构建时绑定，
// 其余代码不做运行时类型检查。
func New(kind, symbol string, cfg *config.Config, reference types.PriceFeed) (Strategy, error) {
	switch strings.ToLower(kind) {
	case KindGrid, "accumulation":
		return NewGrid(symbol, GridParamsFromConfig(cfg)), nil
	case KindMomentum:
		return NewMomentum(symbol, MomentumParams{
			FastWindow:        cfg.MomentumFastWindow,
			SlowWindow:        cfg.MomentumSlowWindow,
			PositionSizeRatio: cfg.GridPositionSizeRatio,
		}), nil
	case KindMLSignal, "mlsignal":
		return NewMLSignal(symbol, MLParams{
			BuyScore:          cfg.MLBuyScore,
			SellScore:         cfg.MLSellScore,
			PositionSizeRatio: cfg.GridPositionSizeRatio,
		}), nil
	case KindArbitrage, "arb":
		if reference == nil {
			return nil, fmt.Errorf("arbitrage strategy requires a reference price feed")
		}
		return NewArbitrage(symbol, ArbParams{
			SpreadThreshold:   cfg.ArbSpreadThreshold,
			PositionSizeRatio: cfg.GridPositionSizeRatio,
		}, reference), nil
	case KindBuyAndHold, "hold":
		return NewBuyAndHold(symbol, cfg.GridPositionSizeRatio), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

// invalidInput 输入校验。返回非空字符串表示本tick必须HOLD。
func invalidInput(price float64, account *types.Account) string {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Sprintf("invalid price %v", price)
	}
	if account == nil {
		return "missing account snapshot"
	}
	if math.IsNaN(account.Equity) || math.IsInf(account.Equity, 0) || account.Equity <= 0 {
		return fmt.Sprintf("invalid equity %v", account.Equity)
	}
	return ""
}

// positionFor 从交易所报告的持仓里找指定交易对。
// 交易所报告是唯一事实来源，本地标志只做同tick内的优化。
func positionFor(symbol string, positions []types.Position) *types.Position {
	symbol = strings.ToUpper(symbol)
	for i := range positions {
		if positions[i].Quantity != 0 && strings.EqualFold(positions[i].Symbol, symbol) {
			return &positions[i]
		}
	}
	return nil
}

// cooldownRemaining 计算评估冷却的剩余时长，0表示可以评估
func cooldownRemaining(lastEval time.Time, interval time.Duration) time.Duration {
	if lastEval.IsZero() || interval <= 0 {
		return 0
	}
	elapsed := time.Since(lastEval)
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

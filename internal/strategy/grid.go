package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/indicators"
	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// GridParams 网格/吸筹策略参数（构建后不可变）
type GridParams struct {
	PositionSizeRatio float64       // 开仓规模占权益比例
	BuyThreshold      float64       // 相对SMA的负偏离，低于即买入
	SellThreshold     float64       // 相对SMA的正偏离，高于即清仓
	ScaleOutThreshold float64       // 相对入场价的浮盈比例，达到即分批止盈
	ScaleOutFraction  float64       // 分批止盈卖出的比例
	SMAWindow         int           // 移动平均窗口
	MinSamples        int           // 开仓前的最少历史样本数
	MinEvalInterval   time.Duration // 两次评估之间的最小间隔，防止订单刷屏
}

// GridParamsFromConfig 从全局配置构建参数
func GridParamsFromConfig(cfg *config.Config) GridParams {
	return GridParams{
		PositionSizeRatio: cfg.GridPositionSizeRatio,
		BuyThreshold:      cfg.GridBuyThreshold,
		SellThreshold:     cfg.GridSellThreshold,
		ScaleOutThreshold: cfg.GridScaleOutThreshold,
		ScaleOutFraction:  cfg.GridScaleOutFraction,
		SMAWindow:         cfg.GridSMAWindow,
		MinSamples:        cfg.GridMinSamples,
		MinEvalInterval:   time.Duration(cfg.GridMinEvalIntervalSec * float64(time.Second)),
	}
}

// Grid 网格/吸筹策略。价格显著低于移动平均时建仓，浮盈达标时分批
// 止盈，价格显著高于均线时清仓。是否持仓一律以交易所报告为准——
// 部分成交或重启后的陈旧本地状态不会造成重复建仓。
type Grid struct {
	symbol string
	params GridParams
	state  *State
}

// NewGrid 创建网格策略
func NewGrid(symbol string, params GridParams) *Grid {
	return &Grid{symbol: symbol, params: params, state: NewState()}
}

// Name 实现Strategy接口
func (g *Grid) Name() string { return KindGrid }

// GenerateSignal 实现Strategy接口
func (g *Grid) GenerateSignal(currentPrice float64, account *types.Account, positions []types.Position) *types.TradeSignal {
	if reason := invalidInput(currentPrice, account); reason != "" {
		return types.Hold(0, reason)
	}

	g.state.Push(currentPrice)

	// 对账：交易所报告持仓归零才回到NO_POSITION
	pos := positionFor(g.symbol, positions)
	if pos == nil {
		g.state.Reset()
	}

	if remaining := cooldownRemaining(g.state.lastEval, g.params.MinEvalInterval); remaining > 0 {
		return types.Hold(0, fmt.Sprintf("cooldown: %.0fs remaining", remaining.Seconds()))
	}
	g.state.lastEval = time.Now()

	if g.state.Len() < g.params.MinSamples {
		return types.Hold(0, fmt.Sprintf("warming up: %d/%d samples", g.state.Len(), g.params.MinSamples))
	}

	window := g.params.SMAWindow
	if g.state.Len() < window {
		window = g.state.Len()
	}
	sma := indicators.CalculateSMA(g.state.Prices(), window)
	deviation := indicators.Deviation(currentPrice, sma)

	if pos == nil {
		return g.tryEnter(currentPrice, account.Equity, deviation)
	}
	return g.manageHolding(currentPrice, pos, deviation)
}

// tryEnter NO_POSITION状态：价格足够低于均线时建仓
func (g *Grid) tryEnter(price, equity, deviation float64) *types.TradeSignal {
	if deviation >= g.params.BuyThreshold {
		return types.Hold(0.3, fmt.Sprintf("deviation %.4f above buy threshold %.4f", deviation, g.params.BuyThreshold))
	}

	size := equity * g.params.PositionSizeRatio
	if size < risk.MinNotionalUSD {
		return types.Hold(0, fmt.Sprintf("position size %.2f below minimum notional %.2f", size, risk.MinNotionalUSD))
	}

	quantity := math.Floor(size / price)
	if quantity <= 0 {
		// 单价超过预算时退化为买1个单位，前提是名义价值仍在风控范围内
		quantity = 1
	}

	g.state.entryPrice = price
	return &types.TradeSignal{
		Action:     types.ActionBuy,
		Quantity:   quantity,
		Confidence: 0.7,
		Reason:     fmt.Sprintf("price LOW: deviation %.4f below threshold %.4f", deviation, g.params.BuyThreshold),
	}
}

// manageHolding HOLDING状态：分批止盈或清仓
func (g *Grid) manageHolding(price float64, pos *types.Position, deviation float64) *types.TradeSignal {
	entry := pos.EntryPrice
	if entry <= 0 {
		entry = g.state.entryPrice
	}
	quantity := math.Abs(pos.Quantity)

	// 对账：止盈标志只有在交易所报告的数量确实减少后才算数。
	// 卖单失败时数量不变，撤销标志让止盈在下个tick重试。
	if g.state.scaledOut && g.state.scaleOutFromQty > 0 && quantity >= g.state.scaleOutFromQty {
		g.state.scaledOut = false
	}

	// 价格显著高于均线，全部退出
	if deviation > g.params.SellThreshold {
		return &types.TradeSignal{
			Action:     types.ActionSell,
			Quantity:   quantity,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("price HIGH: deviation %.4f above threshold %.4f", deviation, g.params.SellThreshold),
		}
	}

	// 浮盈达标，分批止盈一次，剩余仓位继续持有
	if entry > 0 && !g.state.scaledOut {
		gain := (price - entry) / entry
		if gain >= g.params.ScaleOutThreshold {
			sellQty := math.Floor(quantity*g.params.ScaleOutFraction*1e8) / 1e8
			if sellQty > 0 {
				g.state.scaledOut = true
				g.state.scaleOutFromQty = quantity
				return &types.TradeSignal{
					Action:     types.ActionSell,
					Quantity:   sellQty,
					Confidence: 0.75,
					Reason:     fmt.Sprintf("scale-out: gain %.4f reached threshold %.4f", gain, g.params.ScaleOutThreshold),
				}
			}
		}
	}

	return types.Hold(0.5, fmt.Sprintf("holding: deviation %.4f within thresholds", deviation))
}

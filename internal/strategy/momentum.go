package strategy

import (
	"fmt"
	"math"

	"github.com/quantfleet/quantfleet-go/internal/indicators"
	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// MomentumParams 动量策略参数
type MomentumParams struct {
	FastWindow        int
	SlowWindow        int
	PositionSizeRatio float64
}

// Momentum 均线交叉动量策略：快线上穿慢线做多，下穿清仓。
// 持仓判断同样以交易所报告为准。
type Momentum struct {
	symbol   string
	params   MomentumParams
	state    *State
	primed   bool // 基准均线已记录，之后才谈得上交叉
	prevFast float64
	prevSlow float64
}

// NewMomentum 创建动量策略
func NewMomentum(symbol string, params MomentumParams) *Momentum {
	return &Momentum{symbol: symbol, params: params, state: NewState()}
}

// Name 实现Strategy接口
func (m *Momentum) Name() string { return KindMomentum }

// GenerateSignal 实现Strategy接口
func (m *Momentum) GenerateSignal(currentPrice float64, account *types.Account, positions []types.Position) *types.TradeSignal {
	if reason := invalidInput(currentPrice, account); reason != "" {
		return types.Hold(0, reason)
	}

	m.state.Push(currentPrice)

	pos := positionFor(m.symbol, positions)
	if pos == nil {
		m.state.Reset()
	}

	prices := m.state.Prices()
	if len(prices) < m.params.SlowWindow {
		return types.Hold(0, fmt.Sprintf("warming up: %d/%d samples", len(prices), m.params.SlowWindow))
	}

	fast := indicators.CalculateSMA(prices, m.params.FastWindow)
	slow := indicators.CalculateSMA(prices, m.params.SlowWindow)

	// 预热结束后的第一次评估只记基准：fast已在slow上方不等于发生过上穿
	if !m.primed {
		m.primed = true
		m.prevFast, m.prevSlow = fast, slow
		return types.Hold(0.3, fmt.Sprintf("baseline: fast %.4f slow %.4f", fast, slow))
	}

	crossedUp := m.prevFast <= m.prevSlow && fast > slow
	crossedDown := m.prevFast >= m.prevSlow && fast < slow
	m.prevFast, m.prevSlow = fast, slow

	if pos == nil {
		if !crossedUp {
			return types.Hold(0.3, fmt.Sprintf("no crossover: fast %.4f slow %.4f", fast, slow))
		}

		size := account.Equity * m.params.PositionSizeRatio
		if size < risk.MinNotionalUSD {
			return types.Hold(0, fmt.Sprintf("position size %.2f below minimum notional %.2f", size, risk.MinNotionalUSD))
		}
		quantity := math.Floor(size / currentPrice)
		if quantity <= 0 {
			quantity = 1
		}

		return &types.TradeSignal{
			Action:     types.ActionBuy,
			Quantity:   quantity,
			Confidence: 0.65,
			Reason:     fmt.Sprintf("bullish crossover: fast %.4f above slow %.4f", fast, slow),
		}
	}

	if crossedDown {
		return &types.TradeSignal{
			Action:     types.ActionSell,
			Quantity:   math.Abs(pos.Quantity),
			Confidence: 0.7,
			Reason:     fmt.Sprintf("bearish crossover: fast %.4f below slow %.4f", fast, slow),
		}
	}

	return types.Hold(0.5, "holding: trend intact")
}

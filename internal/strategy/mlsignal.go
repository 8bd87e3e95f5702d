package strategy

import (
	"fmt"
	"math"

	"github.com/quantfleet/quantfleet-go/internal/indicators"
	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// MLParams 评分策略参数
type MLParams struct {
	BuyScore          float64
	SellScore         float64
	PositionSizeRatio float64
}

// MLSignal 基于动量与RSI特征的归一化评分策略。
// 评分映射到 [0,1]：高于BuyScore买入，低于SellScore平仓。
type MLSignal struct {
	symbol string
	params MLParams
	state  *State
}

// NewMLSignal 创建评分策略
func NewMLSignal(symbol string, params MLParams) *MLSignal {
	return &MLSignal{symbol: symbol, params: params, state: NewState()}
}

// Name 实现Strategy接口
func (m *MLSignal) Name() string { return KindMLSignal }

// GenerateSignal 实现Strategy接口
func (m *MLSignal) GenerateSignal(currentPrice float64, account *types.Account, positions []types.Position) *types.TradeSignal {
	if reason := invalidInput(currentPrice, account); reason != "" {
		return types.Hold(0, reason)
	}

	m.state.Push(currentPrice)

	pos := positionFor(m.symbol, positions)
	if pos == nil {
		m.state.Reset()
	}

	prices := m.state.Prices()
	const minSamples = 15
	if len(prices) < minSamples {
		return types.Hold(0, fmt.Sprintf("warming up: %d/%d samples", len(prices), minSamples))
	}

	score := m.computeScore(prices, currentPrice)

	if pos == nil {
		if score < m.params.BuyScore {
			return types.Hold(score, fmt.Sprintf("score %.3f below buy threshold %.2f", score, m.params.BuyScore))
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
			Confidence: score,
			Reason:     fmt.Sprintf("score %.3f above buy threshold %.2f", score, m.params.BuyScore),
		}
	}

	if score < m.params.SellScore {
		return &types.TradeSignal{
			Action:     types.ActionSell,
			Quantity:   math.Abs(pos.Quantity),
			Confidence: 1 - score,
			Reason:     fmt.Sprintf("score %.3f below sell threshold %.2f", score, m.params.SellScore),
		}
	}

	return types.Hold(score, fmt.Sprintf("holding: score %.3f", score))
}

// computeScore 计算 [0,1] 区间评分：动量与RSI特征各占一半权重。
func (m *MLSignal) computeScore(prices []float64, currentPrice float64) float64 {
	window := 10
	if len(prices) < window {
		window = len(prices)
	}
	sma := indicators.CalculateSMA(prices, window)
	momentum := indicators.Deviation(currentPrice, sma)
	// tanh把偏离压缩到(-1,1)，再平移到(0,1)
	momentumFeature := (math.Tanh(momentum*20) + 1) / 2

	rsi := indicators.CalculateRSI(prices, 14)
	rsiFeature := rsi / 100

	score := 0.5*momentumFeature + 0.5*rsiFeature
	return math.Max(0, math.Min(1, score))
}

package strategy

import (
	"fmt"
	"math"

	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// ArbParams 价差策略参数
type ArbParams struct {
	SpreadThreshold   float64
	PositionSizeRatio float64
}

// Arbitrage 价差策略：主行情价格相对参考行情出现足够折价时买入，
// 价差收敛或反向时平仓。参考价来自独立的行情源。
type Arbitrage struct {
	symbol    string
	params    ArbParams
	reference types.PriceFeed
}

// NewArbitrage 创建价差策略
func NewArbitrage(symbol string, params ArbParams, reference types.PriceFeed) *Arbitrage {
	return &Arbitrage{symbol: symbol, params: params, reference: reference}
}

// Name 实现Strategy接口
func (a *Arbitrage) Name() string { return KindArbitrage }

// GenerateSignal 实现Strategy接口
func (a *Arbitrage) GenerateSignal(currentPrice float64, account *types.Account, positions []types.Position) *types.TradeSignal {
	if reason := invalidInput(currentPrice, account); reason != "" {
		return types.Hold(0, reason)
	}

	refPrice, err := a.reference.LastPrice(a.symbol)
	if err != nil {
		return types.Hold(0, fmt.Sprintf("reference price unavailable: %v", err))
	}
	if refPrice <= 0 || math.IsNaN(refPrice) || math.IsInf(refPrice, 0) {
		return types.Hold(0, fmt.Sprintf("reference price invalid: %v", refPrice))
	}

	// 正值表示主行情折价（参考价更高）
	spread := (refPrice - currentPrice) / refPrice
	pos := positionFor(a.symbol, positions)

	if pos == nil {
		if spread < a.params.SpreadThreshold {
			return types.Hold(0.3, fmt.Sprintf("spread %.4f below threshold %.4f", spread, a.params.SpreadThreshold))
		}

		size := account.Equity * a.params.PositionSizeRatio
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
			Confidence: 0.7,
			Reason:     fmt.Sprintf("spread %.4f above threshold %.4f (ref %.4f)", spread, a.params.SpreadThreshold, refPrice),
		}
	}

	// 价差收敛到一半以下即平仓锁定收益
	if spread < a.params.SpreadThreshold/2 {
		return &types.TradeSignal{
			Action:     types.ActionSell,
			Quantity:   math.Abs(pos.Quantity),
			Confidence: 0.75,
			Reason:     fmt.Sprintf("spread converged to %.4f", spread),
		}
	}

	return types.Hold(0.5, fmt.Sprintf("holding: spread %.4f", spread))
}

package strategy

import (
	"fmt"
	"math"

	"github.com/quantfleet/quantfleet-go/internal/risk"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// BuyAndHold 买入持有策略：无持仓时建仓一次，之后永不卖出。
type BuyAndHold struct {
	symbol            string
	positionSizeRatio float64
}

// NewBuyAndHold 创建买入持有策略
func NewBuyAndHold(symbol string, positionSizeRatio float64) *BuyAndHold {
	return &BuyAndHold{symbol: symbol, positionSizeRatio: positionSizeRatio}
}

// Name 实现Strategy接口
func (b *BuyAndHold) Name() string { return KindBuyAndHold }

// GenerateSignal 实现Strategy接口
func (b *BuyAndHold) GenerateSignal(currentPrice float64, account *types.Account, positions []types.Position) *types.TradeSignal {
	if reason := invalidInput(currentPrice, account); reason != "" {
		return types.Hold(0, reason)
	}

	if pos := positionFor(b.symbol, positions); pos != nil {
		return types.Hold(1, "holding position indefinitely")
	}

	size := account.Equity * b.positionSizeRatio
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
		Confidence: 0.9,
		Reason:     "establishing long-term position",
	}
}

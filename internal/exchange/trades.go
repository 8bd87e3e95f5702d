package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// GetTrades 获取历史成交（按交易对分页，limit上限1000）
func (c *Client) GetTrades(symbol string, limit int) ([]types.Trade, error) {
	cfg := config.Get()
	if cfg.DryRun {
		return []types.Trade{}, nil
	}

	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	params := map[string]string{
		"symbol": utils.NormalizeSymbol(symbol),
		"limit":  strconv.Itoa(limit),
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v1/userTrades", params)
	if err != nil {
		return nil, err
	}

	var resp []map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: "GET /fapi/v1/userTrades", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	trades := make([]types.Trade, 0, len(resp))
	for _, t := range resp {
		price := utils.GetFloat(t, "price", 0)
		qty := utils.GetFloat(t, "qty", 0)
		isMaker, _ := utils.ParseBoolValue(t["maker"])

		side := utils.GetString(t, "side", "")
		if side == "" {
			if buyer, _ := utils.ParseBoolValue(t["buyer"]); buyer {
				side = "BUY"
			} else {
				side = "SELL"
			}
		}

		// 交易所不一定返回手续费，缺失时按费率本地计算
		commission := utils.GetFloat(t, "commission", 0)
		if commission == 0 {
			commission = ComputeCommission(price, qty, isMaker)
		}

		timeVal := utils.GetFloat(t, "time", 0)
		trades = append(trades, types.Trade{
			Symbol:      utils.GetString(t, "symbol", ""),
			Side:        side,
			Price:       price,
			Quantity:    qty,
			RealizedPnl: utils.GetFloat(t, "realizedPnl", 0),
			Commission:  commission,
			IsMaker:     isMaker,
			Timestamp:   int64(timeVal / 1000),
		})
	}

	return trades, nil
}

// ComputeCommission 本地手续费计算：price × qty × feeRate(maker|taker)，
// 四舍五入到6位小数，结果永远 >= 0。金额运算走decimal避免
// 浮点累积误差。
func ComputeCommission(price, qty float64, isMaker bool) float64 {
	cfg := config.Get()
	rate := cfg.TakerFeeRate
	if isMaker {
		rate = cfg.MakerFeeRate
	}

	commission := decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(qty)).
		Mul(decimal.NewFromFloat(rate)).
		Round(6)

	if commission.IsNegative() {
		return 0
	}
	result, _ := commission.Float64()
	return result
}

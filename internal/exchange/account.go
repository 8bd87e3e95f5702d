package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// GetAccountInfo 获取账户快照。返回的Account整体替换上一个tick的视图，
// 本地永远不做增量修改。
func (c *Client) GetAccountInfo() (*types.Account, error) {
	cfg := config.Get()
	if cfg.DryRun {
		return &types.Account{
			Equity:           10000.0,
			AvailableBalance: 10000.0,
			Positions:        []types.Position{},
		}, nil
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v2/account", nil)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &TransportError{Op: "GET /fapi/v2/account", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	wallet := utils.GetFloat(payload, "totalWalletBalance", 0)
	unrealized := utils.GetFloat(payload, "totalUnrealizedProfit", 0)
	realized := utils.GetFloat(payload, "totalRealizedProfit", 0)

	account := &types.Account{
		Equity:           wallet + unrealized,
		AvailableBalance: utils.GetFloat(payload, "availableBalance", 0),
		RealizedPnl:      realized,
		UnrealizedPnl:    unrealized,
	}

	// ROI相对初始本金（权益扣除全部盈亏）
	principal := account.Equity - realized - unrealized
	if principal > 0 {
		account.ROI = (realized + unrealized) / principal
	}

	if rawPositions, ok := payload["positions"].([]interface{}); ok {
		account.Positions = parsePositions(rawPositions)
	}

	return account, nil
}

// GetPositions 获取持仓。由账户快照派生，数量为0的持仓被过滤。
func (c *Client) GetPositions() ([]types.Position, error) {
	account, err := c.GetAccountInfo()
	if err != nil {
		return nil, err
	}
	return account.Positions, nil
}

// parsePositions 把松散类型的持仓JSON解析成严格类型，过滤空仓。
// null和非数值字段一律按0处理。
func parsePositions(raw []interface{}) []types.Position {
	positions := make([]types.Position, 0)
	for _, p := range raw {
		posMap, ok := p.(map[string]interface{})
		if !ok {
			continue
		}

		qty := utils.GetFloat(posMap, "positionAmt", 0)
		if qty == 0 {
			continue // 数量为0的持仓逻辑上不存在
		}

		side := "LONG"
		if qty < 0 {
			side = "SHORT"
		}

		positions = append(positions, types.Position{
			Symbol:           strings.ToUpper(utils.GetString(posMap, "symbol", "")),
			Quantity:         qty,
			Side:             side,
			EntryPrice:       utils.GetFloat(posMap, "entryPrice", 0),
			MarkPrice:        utils.GetFloat(posMap, "markPrice", 0),
			Leverage:         int(utils.GetFloat(posMap, "leverage", 0)),
			UnrealizedPnl:    utils.GetFloat(posMap, "unrealizedProfit", 0),
			LiquidationPrice: utils.GetFloat(posMap, "liquidationPrice", 0),
			InitialMargin:    utils.GetFloat(posMap, "initialMargin", 0),
			MaintMargin:      utils.GetFloat(posMap, "maintMargin", 0),
		})
	}
	return positions
}

// FilterNonZero 过滤数量为0的持仓（供外部持仓列表复用）
func FilterNonZero(positions []types.Position) []types.Position {
	result := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		if p.Quantity != 0 {
			result = append(result, p)
		}
	}
	return result
}

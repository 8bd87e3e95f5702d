package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// PlaceOrder 下单。客户端只保证按请求发出一次签名调用——不幂等，
// 超时后重发前必须先对账。
func (c *Client) PlaceOrder(req types.OrderRequest) (*types.Order, error) {
	cfg := config.Get()
	symbol := utils.NormalizeSymbol(req.Symbol)
	clientOrderID := "fleet-" + uuid.NewString()

	if cfg.DryRun {
		logger := utils.GetLogger("exchange")
		logger.Infow("DRY_RUN: Order would be placed",
			"symbol", symbol,
			"side", req.Side,
			"order_type", req.OrderType,
			"quantity", req.Quantity,
			"price", req.Price,
		)
		return &types.Order{
			ID:            "dry_run_" + strconv.FormatInt(time.Now().UnixNano(), 10),
			ClientOrderID: clientOrderID,
			Symbol:        symbol,
			Side:          strings.ToUpper(req.Side),
			PositionSide:  strings.ToUpper(req.PositionSide),
			OrderType:     strings.ToUpper(req.OrderType),
			Status:        "FILLED",
			Quantity:      req.Quantity,
			FilledQty:     req.Quantity,
			Price:         derefFloat(req.Price),
			Timestamp:     time.Now().Unix(),
		}, nil
	}

	params := map[string]string{
		"symbol":           symbol,
		"side":             strings.ToUpper(req.Side),
		"type":             strings.ToUpper(req.OrderType),
		"quantity":         formatFloat(req.Quantity),
		"newClientOrderId": clientOrderID,
	}

	if req.PositionSide != "" {
		params["positionSide"] = strings.ToUpper(req.PositionSide)
	}
	if req.Price != nil && *req.Price > 0 {
		params["price"] = formatFloat(*req.Price)
	}
	if req.StopPrice != nil && *req.StopPrice > 0 {
		params["stopPrice"] = formatFloat(*req.StopPrice)
	}
	if req.TimeInForce != "" {
		params["timeInForce"] = strings.ToUpper(req.TimeInForce)
	} else if strings.EqualFold(req.OrderType, "LIMIT") {
		params["timeInForce"] = "GTC"
	}
	if req.ReduceOnly {
		params["reduceOnly"] = "true"
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	body, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: "POST /fapi/v1/order", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	order := parseOrder(resp)
	order.ClientOrderID = clientOrderID
	order.Symbol = symbol
	return order, nil
}

// CancelOrder 取消订单
func (c *Client) CancelOrder(symbol, orderID string) error {
	cfg := config.Get()
	symbol = utils.NormalizeSymbol(symbol)

	if cfg.DryRun {
		logger := utils.GetLogger("exchange")
		logger.Infow("DRY_RUN: Order would be cancelled",
			"order_id", orderID,
			"symbol", symbol,
		)
		return nil
	}

	params := map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	_, err := c.signedRequest(ctx, http.MethodDelete, "/fapi/v1/order", params)
	return err
}

// GetOpenOrders 获取当前挂单
func (c *Client) GetOpenOrders(symbol string) ([]*types.Order, error) {
	cfg := config.Get()
	if cfg.DryRun {
		return []*types.Order{}, nil
	}

	params := map[string]string{}
	if symbol != "" {
		params["symbol"] = utils.NormalizeSymbol(symbol)
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v1/openOrders", params)
	if err != nil {
		return nil, err
	}

	return parseOrderList(body, "GET /fapi/v1/openOrders")
}

// GetAllOrders 获取历史订单（按交易对，带数量上限）
func (c *Client) GetAllOrders(symbol string, limit int) ([]*types.Order, error) {
	cfg := config.Get()
	if cfg.DryRun {
		return []*types.Order{}, nil
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

	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v1/allOrders", params)
	if err != nil {
		return nil, err
	}

	return parseOrderList(body, "GET /fapi/v1/allOrders")
}

// SetLeverage 调整杠杆
func (c *Client) SetLeverage(symbol string, leverage int) error {
	cfg := config.Get()
	if cfg.DryRun {
		return nil
	}

	if leverage < 1 {
		leverage = 1
	}
	params := map[string]string{
		"symbol":   utils.NormalizeSymbol(symbol),
		"leverage": strconv.Itoa(leverage),
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	_, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params)
	return err
}

// parseOrderList 解析订单数组响应
func parseOrderList(body []byte, op string) ([]*types.Order, error) {
	var resp []map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("parse JSON: %w", err)}
	}

	orders := make([]*types.Order, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, parseOrder(o))
	}
	return orders, nil
}

// parseOrder 解析单个订单响应
func parseOrder(o map[string]interface{}) *types.Order {
	timeVal := utils.GetFloat(o, "time", 0)
	if timeVal == 0 {
		timeVal = utils.GetFloat(o, "updateTime", 0)
	}

	return &types.Order{
		ID:            formatID(o["orderId"]),
		ClientOrderID: utils.GetString(o, "clientOrderId", ""),
		Symbol:        utils.GetString(o, "symbol", ""),
		Side:          utils.GetString(o, "side", ""),
		PositionSide:  utils.GetString(o, "positionSide", ""),
		OrderType:     utils.GetString(o, "type", ""),
		Status:        utils.GetString(o, "status", ""),
		Quantity:      utils.GetFloat(o, "origQty", 0),
		Price:         utils.GetFloat(o, "price", 0),
		StopPrice:     utils.GetFloat(o, "stopPrice", 0),
		FilledQty:     utils.GetFloat(o, "executedQty", 0),
		AvgPrice:      utils.GetFloat(o, "avgPrice", 0),
		Timestamp:     int64(timeVal / 1000),
	}
}

// formatID 订单ID可能以数字或字符串返回
func formatID(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatInt(int64(val), 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func derefFloat(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}

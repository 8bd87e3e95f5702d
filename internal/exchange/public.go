package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quantfleet/quantfleet-go/internal/utils"
)

// SymbolInfo 交易所元数据里的单个交易对
type SymbolInfo struct {
	Symbol            string `json:"symbol"`
	Status            string `json:"status"`
	BaseAsset         string `json:"base_asset"`
	QuoteAsset        string `json:"quote_asset"`
	PricePrecision    int    `json:"price_precision"`
	QuantityPrecision int    `json:"quantity_precision"`
}

// GetServerTime 获取交易所服务器时间（毫秒）。用于观测本地时钟漂移是否
// 超出recvWindow容差。
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	body, err := c.publicRequest(ctx, "/fapi/v1/time", nil)
	if err != nil {
		return 0, err
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &TransportError{Op: "GET /fapi/v1/time", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	serverTime, err := utils.ParseFloatValue(resp["serverTime"])
	if err != nil {
		return 0, fmt.Errorf("invalid serverTime field: %w", err)
	}
	return int64(serverTime), nil
}

// GetExchangeInfo 获取交易所元数据（交易对列表和交易状态）
func (c *Client) GetExchangeInfo(ctx context.Context) ([]SymbolInfo, error) {
	body, err := c.publicRequest(ctx, "/fapi/v1/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: "GET /fapi/v1/exchangeInfo", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	rawSymbols, ok := resp["symbols"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid exchangeInfo format: missing symbols")
	}

	symbols := make([]SymbolInfo, 0, len(rawSymbols))
	for _, s := range rawSymbols {
		symMap, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		symbols = append(symbols, SymbolInfo{
			Symbol:            strings.ToUpper(utils.GetString(symMap, "symbol", "")),
			Status:            utils.GetString(symMap, "status", ""),
			BaseAsset:         utils.GetString(symMap, "baseAsset", ""),
			QuoteAsset:        utils.GetString(symMap, "quoteAsset", ""),
			PricePrecision:    int(utils.GetFloat(symMap, "pricePrecision", 0)),
			QuantityPrecision: int(utils.GetFloat(symMap, "quantityPrecision", 0)),
		})
	}

	return symbols, nil
}

// GetTickerPrice 获取最新成交价（公开接口，无需签名）
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]string{
		"symbol": utils.NormalizeSymbol(symbol),
	}

	body, err := c.publicRequest(ctx, "/fapi/v1/ticker/price", params)
	if err != nil {
		return 0, err
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &TransportError{Op: "GET /fapi/v1/ticker/price", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	price, err := utils.ParseFloatValue(resp["price"])
	if err != nil {
		return 0, fmt.Errorf("invalid price field: %w", err)
	}
	return price, nil
}

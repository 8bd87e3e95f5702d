package market

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/exchange"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// Feed 行情价格源。ticker价格带短TTL缓存，同一代理的多个runner
// 在一个tick窗口内不会重复打交易所。
type Feed struct {
	client  *exchange.Client
	cache   map[string]priceEntry
	cacheMu sync.RWMutex
}

type priceEntry struct {
	price     float64
	timestamp time.Time
}

// NewFeed 创建价格源
func NewFeed(client *exchange.Client) *Feed {
	return &Feed{
		client: client,
		cache:  make(map[string]priceEntry),
	}
}

// LastPrice 获取最新价格。非有限值和非正值在这里拦下，
// 下游策略永远只见到有效价格或错误。
func (f *Feed) LastPrice(symbol string) (float64, error) {
	symbol = utils.NormalizeSymbol(symbol)

	if price, ok := f.getCached(symbol); ok {
		return price, nil
	}

	ctx, cancel := utils.WithRequestTimeout(context.Background())
	defer cancel()

	price, err := f.client.GetTickerPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("invalid price %v for %s", price, symbol)
	}

	f.setCached(symbol, price)
	return price, nil
}

func (f *Feed) getCached(symbol string) (float64, bool) {
	f.cacheMu.RLock()
	defer f.cacheMu.RUnlock()

	entry, exists := f.cache[symbol]
	if !exists {
		return 0, false
	}

	cfg := config.Get()
	ttl := time.Duration(cfg.PriceCacheTTLSec * float64(time.Second))
	if time.Since(entry.timestamp) > ttl {
		return 0, false
	}
	return entry.price, true
}

func (f *Feed) setCached(symbol string, price float64) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	f.cache[symbol] = priceEntry{price: price, timestamp: time.Now()}
}

// 确保Feed实现了types.PriceFeed接口（编译时检查）
var _ types.PriceFeed = (*Feed)(nil)

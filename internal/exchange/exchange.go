package exchange

import (
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// 确保Client实现了types.ExchangeClient接口（编译时检查）
var _ types.ExchangeClient = (*Client)(nil)

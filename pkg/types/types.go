package types

import "time"

// Credentials 交易所账户凭证（进程启动时加载，运行期间只读）
// APISecret 仅用于HMAC签名，永远不会随请求发送。
type Credentials struct {
	SignerAddress string `json:"signer_address"`
	APIKey        string `json:"api_key"`
	APISecret     string `json:"-"`
}

// Account 账户快照（每个tick从交易所整体替换，本地不做增量修改）
type Account struct {
	Equity           float64    `json:"equity"`            // 钱包余额 + 未实现盈亏
	AvailableBalance float64    `json:"available_balance"`
	RealizedPnl      float64    `json:"realized_pnl"`
	UnrealizedPnl    float64    `json:"unrealized_pnl"`
	ROI              float64    `json:"roi"`
	Positions        []Position `json:"positions"`
}

// Position 持仓（数量为0的持仓视为不存在，由ExchangeClient过滤）
type Position struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"` // 有符号数量，SHORT为负
	Side             string  `json:"side"`     // LONG, SHORT
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	Leverage         int     `json:"leverage"`
	UnrealizedPnl    float64 `json:"unrealized_pnl"`
	LiquidationPrice float64 `json:"liquidation_price"`
	InitialMargin    float64 `json:"initial_margin"`
	MaintMargin      float64 `json:"maint_margin"`
}

// Trade 历史成交
type Trade struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"` // BUY, SELL
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	RealizedPnl float64 `json:"realized_pnl"`
	Commission  float64 `json:"commission"`
	IsMaker     bool    `json:"is_maker"`
	Timestamp   int64   `json:"timestamp"`
}

// 信号动作
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// TradeSignal 策略输出（每个tick重新生成，引擎自身不持久化）
type TradeSignal struct {
	Action     string   `json:"action"` // BUY, SELL, HOLD
	Quantity   float64  `json:"quantity"`
	Price      *float64 `json:"price,omitempty"` // 限价，可选
	Confidence float64  `json:"confidence"`      // [0, 1]
	Reason     string   `json:"reason"`
}

// Hold 构建HOLD信号
func Hold(confidence float64, reason string) *TradeSignal {
	return &TradeSignal{Action: ActionHold, Quantity: 0, Confidence: confidence, Reason: reason}
}

// RiskLimits 每个代理的风控参数（加载一次，运行期间只读）
type RiskLimits struct {
	MaxDrawdownPercent     float64 `json:"max_drawdown_percent"`
	MaxPositionSizePercent float64 `json:"max_position_size_percent"`
	MaxTradesPerDay        int     `json:"max_trades_per_day"`
	MinWinRate             float64 `json:"min_win_rate"`
	SlippageTolerancePct   float64 `json:"slippage_tolerance_pct"`
}

// Order 订单
type Order struct {
	ID            string  `json:"id"`
	ClientOrderID string  `json:"client_order_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`          // BUY, SELL
	PositionSide  string  `json:"position_side"` // LONG, SHORT
	OrderType     string  `json:"order_type"`    // LIMIT, MARKET, STOP, STOP_MARKET
	Status        string  `json:"status"`        // NEW, FILLED, CANCELED, REJECTED
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price,omitempty"`
	StopPrice     float64 `json:"stop_price,omitempty"`
	FilledQty     float64 `json:"filled_qty"`
	AvgPrice      float64 `json:"avg_price,omitempty"`
	ReduceOnly    bool    `json:"reduce_only,omitempty"`
	Timestamp     int64   `json:"timestamp"`
}

// OrderRequest 下单请求
type OrderRequest struct {
	Symbol       string   `json:"symbol"`
	Side         string   `json:"side"`
	PositionSide string   `json:"position_side,omitempty"`
	OrderType    string   `json:"order_type"`
	Quantity     float64  `json:"quantity"`
	Price        *float64 `json:"price,omitempty"`
	StopPrice    *float64 `json:"stop_price,omitempty"`
	TimeInForce  string   `json:"time_in_force,omitempty"` // GTC, IOC, FOK
	ReduceOnly   bool     `json:"reduce_only,omitempty"`
}

// TickRecord 每个tick输出给观测流的结构化记录
// 下游（看板/排行榜等）只依赖这个形状。
type TickRecord struct {
	RecordID   string  `json:"record_id"`
	AgentID    string  `json:"agent_id"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Quantity   float64 `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	OrderID    string  `json:"order_id,omitempty"`
	Error      string  `json:"error,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// ExchangeClient 交易所客户端接口（AgentRunner依赖接口，便于测试替身）
type ExchangeClient interface {
	GetAccountInfo() (*Account, error)
	GetPositions() ([]Position, error)
	GetTrades(symbol string, limit int) ([]Trade, error)
	GetOpenOrders(symbol string) ([]*Order, error)
	PlaceOrder(req OrderRequest) (*Order, error)
	CancelOrder(symbol, orderID string) error
	SetLeverage(symbol string, leverage int) error
}

// PriceFeed 行情价格源
type PriceFeed interface {
	LastPrice(symbol string) (float64, error)
}

// NowMillis 当前毫秒时间戳
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

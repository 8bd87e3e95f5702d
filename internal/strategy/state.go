package strategy

import "time"

// historyCapacity 滚动价格历史的上限
const historyCapacity = 100

// State 策略运行状态，归属唯一的AgentRunner，不跨symbol或代理共享。
// 标志位都能从交易所报告的持仓重建——进程重启后不依赖本地状态。
type State struct {
	history         []float64 // 环形缓冲
	head            int
	size            int
	scaledOut       bool
	scaleOutFromQty float64 // 发出止盈卖单时交易所报告的数量，用于成交对账
	entryPrice      float64
	lastEval        time.Time
}

// NewState 创建策略状态
func NewState() *State {
	return &State{history: make([]float64, historyCapacity)}
}

// Push 记录一个价格样本
func (s *State) Push(price float64) {
	s.history[s.head] = price
	s.head = (s.head + 1) % len(s.history)
	if s.size < len(s.history) {
		s.size++
	}
}

// Len 当前样本数
func (s *State) Len() int {
	return s.size
}

// Prices 按时间顺序返回全部样本
func (s *State) Prices() []float64 {
	out := make([]float64, 0, s.size)
	start := s.head - s.size
	if start < 0 {
		start += len(s.history)
	}
	for i := 0; i < s.size; i++ {
		out = append(out, s.history[(start+i)%len(s.history)])
	}
	return out
}

// Reset 持仓归零后清理标志位（对账触发，不靠本地记账）
func (s *State) Reset() {
	s.scaledOut = false
	s.scaleOutFromQty = 0
	s.entryPrice = 0
}

package risk

import (
	"fmt"
	"math"

	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// MinNotionalUSD 交易所最小名义价值（美元）
const MinNotionalUSD = 5.0

// CircuitBreakerResult 熔断评估结果。只是建议性输出，
// 是否停止交易由AgentRunner决定。
type CircuitBreakerResult struct {
	ShouldStop bool
	Drawdown   float64
	Reason     string
}

// Manager 风控管理器。对账户状态做纯函数式评估，自身不持有可变状态。
type Manager struct {
	limits types.RiskLimits
}

// NewManager 创建风控管理器
func NewManager(limits types.RiskLimits) *Manager {
	return &Manager{limits: limits}
}

// Limits 返回风控参数
func (m *Manager) Limits() types.RiskLimits {
	return m.limits
}

// CheckCircuitBreaker 熔断检查：回撤 = (峰值 − 当前) / 峰值，
// 超过配置上限时触发。
func (m *Manager) CheckCircuitBreaker(currentEquity, peakEquity float64) CircuitBreakerResult {
	if peakEquity <= 0 || math.IsNaN(currentEquity) || math.IsNaN(peakEquity) {
		return CircuitBreakerResult{ShouldStop: false, Reason: "no equity history"}
	}

	drawdown := (peakEquity - currentEquity) / peakEquity * 100
	if drawdown > m.limits.MaxDrawdownPercent {
		return CircuitBreakerResult{
			ShouldStop: true,
			Drawdown:   drawdown,
			Reason: fmt.Sprintf("drawdown %.2f%% exceeds limit %.2f%% (peak %.2f, current %.2f)",
				drawdown, m.limits.MaxDrawdownPercent, peakEquity, currentEquity),
		}
	}

	return CircuitBreakerResult{ShouldStop: false, Drawdown: drawdown}
}

// ValidateOrderSize 订单规模校验：名义价值不得超过权益 × 仓位上限比例，
// 且必须达到交易所最小名义价值。
func (m *Manager) ValidateOrderSize(notional, equity float64) error {
	if math.IsNaN(notional) || math.IsInf(notional, 0) || notional <= 0 {
		return fmt.Errorf("invalid order notional %v", notional)
	}
	if notional < MinNotionalUSD {
		return fmt.Errorf("notional %.2f below exchange minimum %.2f", notional, MinNotionalUSD)
	}

	maxNotional := equity * m.limits.MaxPositionSizePercent / 100
	if notional > maxNotional {
		return fmt.Errorf("notional %.2f exceeds %.1f%% of equity (max %.2f)",
			notional, m.limits.MaxPositionSizePercent, maxNotional)
	}

	return nil
}

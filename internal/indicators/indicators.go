package indicators

import (
	"math"
)

// CalculateSMA 计算简单移动平均线（取最近period个样本）
func CalculateSMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// CalculateEMA 计算指数移动平均线
func CalculateEMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}

	// 初始SMA作为种子
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}

	return ema
}

// CalculateRSI 计算相对强弱指标。数据不足时返回中性值50。
func CalculateRSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50.0
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder平滑
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// CalculateStdDev 计算最近period个样本的标准差
func CalculateStdDev(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}

	mean := CalculateSMA(prices, period)
	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		diff := prices[i] - mean
		variance += diff * diff
	}
	variance /= float64(period)
	return math.Sqrt(variance)
}

// Deviation 计算价格相对基准的偏离比例，基准无效时返回0
func Deviation(price, base float64) float64 {
	if base == 0 || math.IsNaN(base) {
		return 0
	}
	return (price - base) / base
}

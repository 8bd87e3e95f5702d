package exchange

import (
	"math"
	"testing"
)

func TestComputeCommissionTaker(t *testing.T) {
	setupConfig(t)

	// 1.0953 × 77.86 × 0.00035 = 0.0298480203，6位小数
	got := ComputeCommission(1.0953, 77.86, false)
	if math.Abs(got-0.029848) > 1e-9 {
		t.Errorf("taker手续费不符: got %v, want 0.029848", got)
	}
}

func TestComputeCommissionMaker(t *testing.T) {
	setupConfig(t)

	// maker费率更低: 100 × 10 × 0.0001 = 0.1
	got := ComputeCommission(100, 10, true)
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("maker手续费不符: got %v, want 0.1", got)
	}
}

func TestComputeCommissionNeverNegative(t *testing.T) {
	setupConfig(t)

	if got := ComputeCommission(-100, 10, false); got != 0 {
		t.Errorf("手续费不应为负: got %v", got)
	}
	if got := ComputeCommission(0, 0, true); got != 0 {
		t.Errorf("零成交手续费应为0: got %v", got)
	}
}

package exchange

import (
	"testing"

	"github.com/quantfleet/quantfleet-go/pkg/types"
)

func TestParsePositionsFiltersZeroQuantity(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"symbol": "btcusdt", "positionAmt": "0.5", "entryPrice": "60000"},
		map[string]interface{}{"symbol": "ETHUSDT", "positionAmt": "0", "entryPrice": "3000"},
		map[string]interface{}{"symbol": "SOLUSDT", "positionAmt": "-10", "entryPrice": "150"},
		map[string]interface{}{"symbol": "XRPUSDT", "positionAmt": nil},
	}

	positions := parsePositions(raw)
	if len(positions) != 2 {
		t.Fatalf("期望过滤后剩2个持仓, got %d", len(positions))
	}

	if positions[0].Symbol != "BTCUSDT" || positions[0].Side != "LONG" {
		t.Errorf("多头持仓解析错误: %+v", positions[0])
	}
	if positions[1].Symbol != "SOLUSDT" || positions[1].Side != "SHORT" {
		t.Errorf("空头持仓解析错误: %+v", positions[1])
	}
	if positions[1].Quantity != -10 {
		t.Errorf("空头数量应保留符号: got %v", positions[1].Quantity)
	}
}

func TestFilterNonZero(t *testing.T) {
	positions := []types.Position{
		{Symbol: "BTCUSDT", Quantity: 1},
		{Symbol: "ETHUSDT", Quantity: 0},
		{Symbol: "SOLUSDT", Quantity: -2},
	}

	filtered := FilterNonZero(positions)
	if len(filtered) != 2 {
		t.Fatalf("期望剩2个持仓, got %d", len(filtered))
	}
	for _, p := range filtered {
		if p.Quantity == 0 {
			t.Errorf("零数量持仓未被过滤: %+v", p)
		}
	}
}

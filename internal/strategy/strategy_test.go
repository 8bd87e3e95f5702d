package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		GridPositionSizeRatio:  0.15,
		GridBuyThreshold:       -0.03,
		GridSellThreshold:      0.05,
		GridScaleOutThreshold:  0.04,
		GridScaleOutFraction:   0.5,
		GridSMAWindow:          20,
		GridMinSamples:         5,
		GridMinEvalIntervalSec: 0,
		MomentumFastWindow:     5,
		MomentumSlowWindow:     20,
		MLBuyScore:             0.65,
		MLSellScore:            0.35,
		ArbSpreadThreshold:     0.005,
	}
}

// staticFeed 测试用的固定价格行情源
type staticFeed struct {
	price float64
	err   error
}

func (f *staticFeed) LastPrice(symbol string) (float64, error) {
	return f.price, f.err
}

func testAccount(equity float64) *types.Account {
	return &types.Account{Equity: equity, AvailableBalance: equity}
}

func testGridParams() GridParams {
	return GridParams{
		PositionSizeRatio: 0.15,
		BuyThreshold:      -0.03,
		SellThreshold:     0.05,
		ScaleOutThreshold: 0.04,
		ScaleOutFraction:  0.5,
		SMAWindow:         20,
		MinSamples:        5,
		MinEvalInterval:   0,
	}
}

func TestAllStrategiesHoldOnInvalidInput(t *testing.T) {
	strategies := []Strategy{
		NewGrid("BTCUSDT", testGridParams()),
		NewMomentum("BTCUSDT", MomentumParams{FastWindow: 5, SlowWindow: 20, PositionSizeRatio: 0.15}),
		NewMLSignal("BTCUSDT", MLParams{BuyScore: 0.65, SellScore: 0.35, PositionSizeRatio: 0.15}),
		NewArbitrage("BTCUSDT", ArbParams{SpreadThreshold: 0.005, PositionSizeRatio: 0.15}, &staticFeed{price: 100}),
		NewBuyAndHold("BTCUSDT", 0.15),
	}

	cases := []struct {
		name    string
		price   float64
		account *types.Account
	}{
		{"NaN价格", math.NaN(), testAccount(1000)},
		{"零价格", 0, testAccount(1000)},
		{"负价格", -10, testAccount(1000)},
		{"无穷价格", math.Inf(1), testAccount(1000)},
		{"nil账户", 100, nil},
		{"零权益", 100, testAccount(0)},
		{"NaN权益", 100, testAccount(math.NaN())},
	}

	for _, s := range strategies {
		for _, tc := range cases {
			signal := s.GenerateSignal(tc.price, tc.account, nil)
			if signal.Action != types.ActionHold {
				t.Errorf("%s/%s: 非法输入应返回HOLD, got %s", s.Name(), tc.name, signal.Action)
			}
			if signal.Confidence != 0 {
				t.Errorf("%s/%s: 非法输入置信度应为0, got %v", s.Name(), tc.name, signal.Confidence)
			}
		}
	}
}

func TestGridWarmupThenBuysOnDip(t *testing.T) {
	g := NewGrid("BTCUSDT", testGridParams())
	account := testAccount(1000)

	// 样本不足时只HOLD
	for i := 0; i < 4; i++ {
		signal := g.GenerateSignal(100, account, nil)
		if signal.Action != types.ActionHold {
			t.Fatalf("tick %d: 预热期应HOLD, got %s", i+1, signal.Action)
		}
	}

	// 第5个样本：价格在均线上，偏离为0，不买
	signal := g.GenerateSignal(100, account, nil)
	if signal.Action != types.ActionHold {
		t.Fatalf("tick 5: 偏离为0应HOLD, got %s", signal.Action)
	}

	// 第6个样本：90对SMA 98.33偏离约-8.5%，低于-3%阈值
	signal = g.GenerateSignal(90, account, nil)
	if signal.Action != types.ActionBuy {
		t.Fatalf("tick 6: 显著低于均线应BUY, got %s (%s)", signal.Action, signal.Reason)
	}
	// 1000 × 0.15 = 150预算，floor(150/90) = 1
	if signal.Quantity != 1 {
		t.Errorf("数量不符: got %v, want 1", signal.Quantity)
	}
}

func TestGridNoDuplicateEntryWhileHolding(t *testing.T) {
	g := NewGrid("BTCUSDT", testGridParams())
	account := testAccount(1000)
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 1, Side: "LONG", EntryPrice: 90}}

	// 即使价格持续低于均线，持仓期间也不再买入
	for i := 0; i < 5; i++ {
		g.GenerateSignal(100, account, positions)
	}
	signal := g.GenerateSignal(85, account, positions)
	if signal.Action == types.ActionBuy {
		t.Errorf("持仓期间不应重复建仓: %s", signal.Reason)
	}
}

func TestGridSellsOnHighDeviation(t *testing.T) {
	g := NewGrid("BTCUSDT", testGridParams())
	account := testAccount(1000)
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 2, Side: "LONG", EntryPrice: 100}}

	for i := 0; i < 5; i++ {
		g.GenerateSignal(100, account, positions)
	}

	// 107对SMA 101.17偏离约+5.8%，高于+5%阈值，全部清仓
	signal := g.GenerateSignal(107, account, positions)
	if signal.Action != types.ActionSell {
		t.Fatalf("显著高于均线应SELL, got %s (%s)", signal.Action, signal.Reason)
	}
	if signal.Quantity != 2 {
		t.Errorf("应全部清仓: got %v, want 2", signal.Quantity)
	}
}

func TestGridScaleOutOnce(t *testing.T) {
	g := NewGrid("BTCUSDT", testGridParams())
	account := testAccount(1000)
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 2, Side: "LONG", EntryPrice: 90}}

	// 价格稳定在94：相对均线偏离0，相对入场价浮盈约4.4% ≥ 4%
	for i := 0; i < 4; i++ {
		g.GenerateSignal(94, account, positions)
	}
	signal := g.GenerateSignal(94, account, positions)
	if signal.Action != types.ActionSell {
		t.Fatalf("浮盈达标应分批止盈, got %s (%s)", signal.Action, signal.Reason)
	}
	if signal.Quantity != 1 {
		t.Errorf("止盈应卖出一半: got %v, want 1", signal.Quantity)
	}

	// 卖单成交后交易所报告数量减半，同一持仓周期内不再重复止盈
	reduced := []types.Position{{Symbol: "BTCUSDT", Quantity: 1, Side: "LONG", EntryPrice: 90}}
	signal = g.GenerateSignal(94, account, reduced)
	if signal.Action != types.ActionHold {
		t.Errorf("重复止盈: got %s (%s)", signal.Action, signal.Reason)
	}
}

func TestGridScaleOutRetriesAfterFailedSell(t *testing.T) {
	g := NewGrid("BTCUSDT", testGridParams())
	account := testAccount(1000)
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 2, Side: "LONG", EntryPrice: 90}}

	for i := 0; i < 4; i++ {
		g.GenerateSignal(94, account, positions)
	}
	signal := g.GenerateSignal(94, account, positions)
	if signal.Action != types.ActionSell {
		t.Fatalf("浮盈达标应分批止盈, got %s (%s)", signal.Action, signal.Reason)
	}

	// 卖单未成交：交易所报告的数量原封不动，止盈必须重试
	signal = g.GenerateSignal(94, account, positions)
	if signal.Action != types.ActionSell {
		t.Fatalf("卖单失败后应重试止盈, got %s (%s)", signal.Action, signal.Reason)
	}
	if signal.Quantity != 1 {
		t.Errorf("重试止盈数量: got %v, want 1", signal.Quantity)
	}
}

func TestGridResetAfterPositionClosed(t *testing.T) {
	g := NewGrid("BTCUSDT", testGridParams())
	account := testAccount(1000)
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 2, Side: "LONG", EntryPrice: 90}}

	for i := 0; i < 6; i++ {
		g.GenerateSignal(94, account, positions)
	}
	if !g.state.scaledOut {
		t.Fatal("止盈标志未置位")
	}

	// 交易所报告持仓归零，标志位必须对账清理
	g.GenerateSignal(94, account, nil)
	if g.state.scaledOut {
		t.Error("持仓归零后止盈标志应清理")
	}
}

func TestMomentumCrossover(t *testing.T) {
	m := NewMomentum("BTCUSDT", MomentumParams{FastWindow: 2, SlowWindow: 3, PositionSizeRatio: 0.15})
	account := testAccount(1000)

	// 下跌后反转上涨，快线上穿慢线
	for _, p := range []float64{100, 90, 80, 100} {
		signal := m.GenerateSignal(p, account, nil)
		if signal.Action == types.ActionBuy {
			t.Fatalf("价格%v时不应有交叉买入: %s", p, signal.Reason)
		}
	}
	signal := m.GenerateSignal(120, account, nil)
	if signal.Action != types.ActionBuy {
		t.Fatalf("金叉应BUY, got %s (%s)", signal.Action, signal.Reason)
	}

	// 持仓后下跌，快线下穿慢线时清仓
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 1, Side: "LONG", EntryPrice: 120}}
	var sold bool
	for _, p := range []float64{110, 90, 70} {
		signal = m.GenerateSignal(p, account, positions)
		if signal.Action == types.ActionSell {
			sold = true
			if signal.Quantity != 1 {
				t.Errorf("死叉应全部清仓: got %v", signal.Quantity)
			}
			break
		}
	}
	if !sold {
		t.Error("持续下跌未触发死叉清仓")
	}
}

func TestMomentumNoEntryWithoutGenuineCross(t *testing.T) {
	m := NewMomentum("BTCUSDT", MomentumParams{FastWindow: 2, SlowWindow: 3, PositionSizeRatio: 0.15})
	account := testAccount(1000)

	// 单边上涨：快线一直在慢线上方，从未发生上穿，不应买入。
	// 预热结束后的第一次评估只记基准，fast>slow不算交叉。
	for _, p := range []float64{100, 110, 120, 130, 140} {
		signal := m.GenerateSignal(p, account, nil)
		if signal.Action == types.ActionBuy {
			t.Fatalf("无上穿不应买入（价格%v）: %s", p, signal.Reason)
		}
	}
}

func TestMLSignalBuySellThresholds(t *testing.T) {
	m := NewMLSignal("BTCUSDT", MLParams{BuyScore: 0.65, SellScore: 0.35, PositionSizeRatio: 0.15})
	account := testAccount(1000)

	// 持续上涨：RSI趋近100，动量为正，评分应超过买入阈值
	var signal *types.TradeSignal
	for i := 0; i <= 16; i++ {
		signal = m.GenerateSignal(100+float64(i), account, nil)
	}
	if signal.Action != types.ActionBuy {
		t.Fatalf("强势上涨评分应触发BUY, got %s (%s)", signal.Action, signal.Reason)
	}
	if signal.Confidence < 0.65 || signal.Confidence > 1 {
		t.Errorf("评分应在[0.65,1]: got %v", signal.Confidence)
	}

	// 持续下跌：评分跌破卖出阈值则清仓
	m2 := NewMLSignal("BTCUSDT", MLParams{BuyScore: 0.65, SellScore: 0.35, PositionSizeRatio: 0.15})
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 1, Side: "LONG", EntryPrice: 116}}
	for i := 0; i <= 16; i++ {
		signal = m2.GenerateSignal(116-float64(i), account, positions)
	}
	if signal.Action != types.ActionSell {
		t.Fatalf("弱势评分应触发SELL, got %s (%s)", signal.Action, signal.Reason)
	}
}

func TestArbitrageSpread(t *testing.T) {
	account := testAccount(1000)

	// 主行情折价1%超过0.5%阈值，买入
	a := NewArbitrage("BTCUSDT", ArbParams{SpreadThreshold: 0.005, PositionSizeRatio: 0.15}, &staticFeed{price: 100})
	signal := a.GenerateSignal(99, account, nil)
	if signal.Action != types.ActionBuy {
		t.Fatalf("足够价差应BUY, got %s (%s)", signal.Action, signal.Reason)
	}
	if signal.Quantity != 1 {
		t.Errorf("数量不符: got %v, want 1", signal.Quantity)
	}

	// 价差不足时不动
	signal = a.GenerateSignal(99.9, account, nil)
	if signal.Action != types.ActionHold {
		t.Errorf("价差不足应HOLD, got %s", signal.Action)
	}

	// 价差收敛后平仓
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 1, Side: "LONG", EntryPrice: 99}}
	signal = a.GenerateSignal(99.95, account, positions)
	if signal.Action != types.ActionSell {
		t.Errorf("价差收敛应SELL, got %s (%s)", signal.Action, signal.Reason)
	}
}

func TestArbitrageReferenceUnavailable(t *testing.T) {
	a := NewArbitrage("BTCUSDT", ArbParams{SpreadThreshold: 0.005, PositionSizeRatio: 0.15},
		&staticFeed{err: errors.New("connection refused")})

	signal := a.GenerateSignal(100, testAccount(1000), nil)
	if signal.Action != types.ActionHold || signal.Confidence != 0 {
		t.Errorf("参考价不可用应HOLD(0), got %s conf=%v", signal.Action, signal.Confidence)
	}
}

func TestBuyAndHold(t *testing.T) {
	b := NewBuyAndHold("BTCUSDT", 0.15)
	account := testAccount(1000)

	signal := b.GenerateSignal(100, account, nil)
	if signal.Action != types.ActionBuy {
		t.Fatalf("无持仓应建仓, got %s", signal.Action)
	}
	if signal.Quantity != 1 {
		t.Errorf("数量不符: got %v, want 1", signal.Quantity)
	}

	// 持仓后永不卖出
	positions := []types.Position{{Symbol: "BTCUSDT", Quantity: 1, Side: "LONG", EntryPrice: 100}}
	for _, p := range []float64{50, 200, 10} {
		signal = b.GenerateSignal(p, account, positions)
		if signal.Action != types.ActionHold {
			t.Errorf("价格%v: 买入持有不应卖出, got %s", p, signal.Action)
		}
	}
}

func TestBuyAndHoldBelowMinNotional(t *testing.T) {
	b := NewBuyAndHold("BTCUSDT", 0.15)

	// 权益20 × 0.15 = 3 < 最小名义5
	signal := b.GenerateSignal(100, testAccount(20), nil)
	if signal.Action != types.ActionHold {
		t.Errorf("低于最小名义价值应HOLD, got %s", signal.Action)
	}
}

func TestPositionForMatchesSymbolCaseInsensitive(t *testing.T) {
	positions := []types.Position{
		{Symbol: "ETHUSDT", Quantity: 2},
		{Symbol: "btcusdt", Quantity: 1},
	}
	pos := positionFor("BTCUSDT", positions)
	if pos == nil || pos.Quantity != 1 {
		t.Errorf("按symbol匹配持仓失败: %+v", pos)
	}
	if positionFor("SOLUSDT", positions) != nil {
		t.Errorf("不存在的symbol应返回nil")
	}
}

func TestStrategyFactory(t *testing.T) {
	cfgStub := testConfig()

	for _, kind := range []string{KindGrid, KindMomentum, KindMLSignal, KindBuyAndHold} {
		s, err := New(kind, "BTCUSDT", cfgStub, nil)
		if err != nil {
			t.Errorf("创建%s失败: %v", kind, err)
			continue
		}
		if s.Name() != kind {
			t.Errorf("策略名不符: got %s, want %s", s.Name(), kind)
		}
	}

	// 套利策略缺少参考行情源时报错
	if _, err := New(KindArbitrage, "BTCUSDT", cfgStub, nil); err == nil {
		t.Error("无参考行情的套利策略应报错")
	}
	if _, err := New(KindArbitrage, "BTCUSDT", cfgStub, &staticFeed{price: 100}); err != nil {
		t.Errorf("有参考行情的套利策略不应报错: %v", err)
	}

	if _, err := New("quantum", "BTCUSDT", cfgStub, nil); err == nil {
		t.Error("未知策略类型应报错")
	}
}

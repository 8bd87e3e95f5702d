package strategy

import "testing"

func TestStateRingBuffer(t *testing.T) {
	s := NewState()

	for i := 0; i < 150; i++ {
		s.Push(float64(i))
	}

	if s.Len() != historyCapacity {
		t.Fatalf("样本数应封顶在%d: got %d", historyCapacity, s.Len())
	}

	prices := s.Prices()
	if len(prices) != historyCapacity {
		t.Fatalf("Prices长度不符: got %d", len(prices))
	}
	// 保留的是最近100个样本，时间顺序
	if prices[0] != 50 || prices[len(prices)-1] != 149 {
		t.Errorf("样本窗口不符: first=%v last=%v", prices[0], prices[len(prices)-1])
	}
}

func TestStateResetClearsFlagsOnly(t *testing.T) {
	s := NewState()
	s.Push(100)
	s.Push(101)
	s.scaledOut = true
	s.entryPrice = 100

	s.Reset()

	if s.scaledOut || s.entryPrice != 0 {
		t.Errorf("标志位未清理: scaledOut=%v entryPrice=%v", s.scaledOut, s.entryPrice)
	}
	if s.Len() != 2 {
		t.Errorf("价格历史不应被清空: got %d", s.Len())
	}
}

package market

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/exchange"
)

func newFeedServer(t *testing.T, price string) (*Feed, *int32, func()) {
	t.Helper()
	if err := config.Load(); err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"` + price + `"}`))
	}))

	return NewFeed(exchange.NewPublicClient(server.URL)), &hits, server.Close
}

func TestFeedLastPrice(t *testing.T) {
	feed, _, closeServer := newFeedServer(t, "60000.5")
	defer closeServer()

	price, err := feed.LastPrice("btcusdt")
	if err != nil {
		t.Fatalf("获取价格失败: %v", err)
	}
	if price != 60000.5 {
		t.Errorf("价格不符: got %v", price)
	}
}

func TestFeedCachesWithinTTL(t *testing.T) {
	feed, hits, closeServer := newFeedServer(t, "100")
	defer closeServer()

	for i := 0; i < 5; i++ {
		if _, err := feed.LastPrice("BTCUSDT"); err != nil {
			t.Fatalf("获取价格失败: %v", err)
		}
	}

	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("TTL内应只打1次交易所: got %d", got)
	}
}

func TestFeedRejectsInvalidPrice(t *testing.T) {
	feed, _, closeServer := newFeedServer(t, "-5")
	defer closeServer()

	if _, err := feed.LastPrice("BTCUSDT"); err == nil {
		t.Error("非正价格应报错")
	}
}

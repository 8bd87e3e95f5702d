package exchange

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/quantfleet/quantfleet-go/pkg/types"
)

func TestPlaceOrderDryRun(t *testing.T) {
	os.Setenv("DRY_RUN", "true")
	defer os.Unsetenv("DRY_RUN")
	setupConfig(t)

	client := NewClient(types.Credentials{APIKey: "k", APISecret: "s"})
	order, err := client.PlaceOrder(types.OrderRequest{
		Symbol:    "btc",
		Side:      "buy",
		OrderType: "market",
		Quantity:  0.5,
	})
	if err != nil {
		t.Fatalf("dry-run下单不应报错: %v", err)
	}

	if order.Status != "FILLED" {
		t.Errorf("dry-run订单应模拟成交: %s", order.Status)
	}
	if order.Symbol != "BTCUSDT" {
		t.Errorf("symbol应规范化: %s", order.Symbol)
	}
	if order.Side != "BUY" || order.OrderType != "MARKET" {
		t.Errorf("方向和类型应转大写: %s %s", order.Side, order.OrderType)
	}
	if !strings.HasPrefix(order.ClientOrderID, "fleet-") {
		t.Errorf("客户端订单ID前缀不符: %s", order.ClientOrderID)
	}
	if order.FilledQty != 0.5 {
		t.Errorf("成交数量不符: %v", order.FilledQty)
	}
}

func TestPlaceOrderSendsExpectedParams(t *testing.T) {
	os.Setenv("DRY_RUN", "false")
	defer os.Unsetenv("DRY_RUN")

	var gotQuery url.Values
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderId":123456,"symbol":"ETHUSDT","side":"SELL","type":"LIMIT","status":"NEW","origQty":"2","price":"3000","updateTime":1700000000000}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	price := 3000.0
	order, err := client.PlaceOrder(types.OrderRequest{
		Symbol:     "ethusdt",
		Side:       "sell",
		OrderType:  "limit",
		Quantity:   2,
		Price:      &price,
		ReduceOnly: true,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/fapi/v1/order" {
		t.Errorf("请求方法或路径不符: %s %s", gotMethod, gotPath)
	}
	if gotQuery.Get("symbol") != "ETHUSDT" || gotQuery.Get("side") != "SELL" || gotQuery.Get("type") != "LIMIT" {
		t.Errorf("订单参数不符: %v", gotQuery)
	}
	// 限价单未指定时默认GTC
	if gotQuery.Get("timeInForce") != "GTC" {
		t.Errorf("限价单应默认GTC: %v", gotQuery.Get("timeInForce"))
	}
	if gotQuery.Get("reduceOnly") != "true" {
		t.Errorf("reduceOnly未传递: %v", gotQuery)
	}
	if gotQuery.Get("signature") == "" || gotQuery.Get("timestamp") == "" {
		t.Errorf("缺少签名或时间戳: %v", gotQuery)
	}

	if order.ID != "123456" {
		t.Errorf("数字订单ID应转为字符串: %s", order.ID)
	}
	if order.Timestamp != 1700000000 {
		t.Errorf("时间戳应转为秒: %d", order.Timestamp)
	}
}

func TestParseOrderStringAndNumericID(t *testing.T) {
	order := parseOrder(map[string]interface{}{
		"orderId":     "abc-123",
		"symbol":      "BTCUSDT",
		"origQty":     "1.5",
		"executedQty": 1.0,
		"status":      "PARTIALLY_FILLED",
	})
	if order.ID != "abc-123" {
		t.Errorf("字符串订单ID应透传: %s", order.ID)
	}
	if order.Quantity != 1.5 || order.FilledQty != 1.0 {
		t.Errorf("数量解析错误: %+v", order)
	}
}

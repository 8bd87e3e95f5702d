package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quantfleet/quantfleet-go/internal/utils"
)

// listenKey生命周期：为带外账户流订阅签发/续期/关闭。
// 交易所约定listenKey 60分钟过期，调用方需要周期性续期。

// CreateListenKey 签发新的listenKey
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	body, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/listenKey", nil)
	if err != nil {
		return "", err
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &TransportError{Op: "POST /fapi/v1/listenKey", Err: fmt.Errorf("parse JSON: %w", err)}
	}

	key := utils.GetString(resp, "listenKey", "")
	if key == "" {
		return "", fmt.Errorf("empty listenKey in response")
	}
	return key, nil
}

// KeepAliveListenKey 续期listenKey
func (c *Client) KeepAliveListenKey(ctx context.Context) error {
	_, err := c.signedRequest(ctx, http.MethodPut, "/fapi/v1/listenKey", nil)
	return err
}

// CloseListenKey 关闭listenKey
func (c *Client) CloseListenKey(ctx context.Context) error {
	_, err := c.signedRequest(ctx, http.MethodDelete, "/fapi/v1/listenKey", nil)
	return err
}

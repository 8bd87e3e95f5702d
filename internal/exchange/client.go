package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// Client 交易所REST客户端。每个代理各持一个实例（各自的凭证），
// 底层HTTP连接池进程内共享。客户端本身不做重试，也不保证幂等：
// 超时后的订单状态不明确，调用方必须先通过GetAccountInfo/GetPositions
// 对账再决定是否重发。
type Client struct {
	creds       types.Credentials
	baseURL     string
	http        *http.Client
	rateLimiter *RateLimiter
}

var sharedHTTPClient *http.Client

// getSharedHTTPClient 获取进程内共享的HTTP客户端（8秒硬超时）
func getSharedHTTPClient() *http.Client {
	if sharedHTTPClient == nil {
		cfg := config.Get()
		sharedHTTPClient = &http.Client{
			Timeout: time.Duration(cfg.ExchangeTimeoutSec * float64(time.Second)),
		}
	}
	return sharedHTTPClient
}

// NewClient 创建交易所客户端
func NewClient(creds types.Credentials) *Client {
	cfg := config.Get()
	return &Client{
		creds:       creds,
		baseURL:     strings.TrimSuffix(cfg.ExchangeBaseURL, "/"),
		http:        getSharedHTTPClient(),
		rateLimiter: GetSharedRateLimiter(),
	}
}

// NewPublicClient 创建只访问公开接口的客户端（比如套利策略的参照行情源）。
// 不携带凭证，签名接口对它不可用。
func NewPublicClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		http:        getSharedHTTPClient(),
		rateLimiter: GetSharedRateLimiter(),
	}
}

// CanonicalQuery 规范化查询字符串：key=value按键名字典序排列，&连接。
// 交易所服务端按同样规则重算签名，顺序不一致会被直接拒绝。
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(parts, "&")
}

// Sign 计算HMAC-SHA256签名（hex编码）
func Sign(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedRequest 发送签名请求并返回原始响应体。
// 每次调用补充timestamp和recvWindow，签名追加在查询串末尾。
func (c *Client) signedRequest(ctx context.Context, method, endpoint string, params map[string]string) ([]byte, error) {
	cfg := config.Get()

	if c.creds.APIKey == "" || c.creds.APISecret == "" {
		return nil, &AuthError{Code: 0, Msg: "missing API credentials"}
	}

	// 等待退避窗口与限流令牌；只延迟请求，从不代发
	GetSharedBackoff().WaitBackoff("exchange")
	c.rateLimiter.Wait(1)

	if params == nil {
		params = make(map[string]string)
	}
	params["timestamp"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	params["recvWindow"] = strconv.FormatInt(cfg.RecvWindowMs, 10)

	canonical := CanonicalQuery(params)
	query := canonical + "&signature=" + Sign(c.creds.APISecret, canonical)

	reqURL := c.baseURL + endpoint + "?" + query
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set(cfg.ExchangeAPIKeyHeader, c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// 超时或网络错误；此时订单状态不明确，交给调用方对账
		return nil, &TransportError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	return c.readResponse(resp, method+" "+endpoint)
}

// publicRequest 发送无签名的公开请求
func (c *Client) publicRequest(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	GetSharedBackoff().WaitBackoff("exchange")
	c.rateLimiter.Wait(1)

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if params != nil {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	return c.readResponse(resp, "GET "+endpoint)
}

// readResponse 读取并归类响应。
// 非JSON的Content-Type按基础设施故障处理（维护页、代理错误），
// 与交易所返回的应用层错误严格区分。
func (c *Client) readResponse(resp *http.Response, op string) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/json" {
		return nil, &TransportError{
			Op:  op,
			Err: fmt.Errorf("non-JSON response (Content-Type %q, HTTP %d)", contentType, resp.StatusCode),
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418 {
		retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"))
		waitSec := GetSharedBackoff().OnRateLimited("exchange", resp.StatusCode, retryAfter)
		logger := utils.GetLogger("exchange")
		logger.Warnw("API rate limited",
			"status", resp.StatusCode,
			"op", op,
			"wait_sec", waitSec,
		)
		code, msg := parseErrorBody(body)
		return nil, classifyAPIError(resp.StatusCode, code, msg)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code, msg := parseErrorBody(body)
		return nil, classifyAPIError(resp.StatusCode, code, msg)
	}

	GetSharedBackoff().ResetBackoff("exchange")
	return body, nil
}

// parseErrorBody 解析交易所错误响应的code和msg字段
func parseErrorBody(body []byte) (int, string) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, utils.SanitizeString(string(body))
	}

	code := 0
	if c, err := utils.ParseFloatValue(payload["code"]); err == nil {
		code = int(c)
	}
	msg := utils.GetString(payload, "msg", "")
	if msg == "" {
		msg = utils.SanitizeString(string(body))
	}
	return code, msg
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/quantfleet/quantfleet-go/pkg/types"
)

// AgentConfig 单个代理的完整配置
type AgentConfig struct {
	ID          string
	Credentials types.Credentials
	Strategy    string // grid, momentum, ml, arbitrage, buyhold
	Symbols     []string
	Limits      types.RiskLimits
}

// Source 代理配置源。管理服务把每个代理的交易对列表和风控覆盖写进Redis；
// 这里读取并在缺失时回退到环境变量/内置默认值。
// Redis客户端由main注入，避免config与utils之间的循环导入。
type Source struct {
	client *redis.Client
}

var globalSource = &Source{}

// GetSource 获取配置源实例
func GetSource() *Source {
	return globalSource
}

// SetRedisClient 注入Redis客户端（延迟初始化）
func (s *Source) SetRedisClient(client *redis.Client) {
	s.client = client
}

// LoadAgents 解析代理清单。AGENT_IDS为空时按单代理部署处理，
// 使用顶层凭证和默认交易对。
func (s *Source) LoadAgents(ctx context.Context) ([]AgentConfig, error) {
	cfg := Get()

	ids := cfg.AgentIDs
	if len(ids) == 0 {
		ids = []string{"default"}
	}

	agents := make([]AgentConfig, 0, len(ids))
	for _, id := range ids {
		agent, err := s.loadAgent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load agent %s: %w", id, err)
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

func (s *Source) loadAgent(ctx context.Context, id string) (AgentConfig, error) {
	cfg := Get()
	prefix := "AGENT_" + strings.ToUpper(id) + "_"

	creds := types.Credentials{
		SignerAddress: agentEnv(prefix, "SIGNER_ADDRESS", cfg.SignerAddress),
		APIKey:        agentEnv(prefix, "API_KEY", cfg.APIKey),
		APISecret:     agentEnv(prefix, "API_SECRET", cfg.APISecret),
	}

	agent := AgentConfig{
		ID:          id,
		Credentials: creds,
		Strategy:    strings.ToLower(agentEnv(prefix, "STRATEGY", "grid")),
		Symbols:     s.resolveSymbols(ctx, id, agentEnv(prefix, "SYMBOLS", "")),
		Limits:      s.resolveLimits(ctx, id),
	}
	return agent, nil
}

// resolveSymbols 交易对列表：Redis优先，环境变量其次，最后内置默认交易对
func (s *Source) resolveSymbols(ctx context.Context, id, envValue string) []string {
	cfg := Get()

	if s.client != nil {
		key := GetRedisKey(fmt.Sprintf("agent:%s:symbols", id))
		if raw, err := s.client.Get(ctx, key).Result(); err == nil && raw != "" {
			if symbols := parseStringList(raw); len(symbols) > 0 {
				return upperAll(symbols)
			}
		}
	}

	if symbols := parseStringList(envValue); len(symbols) > 0 {
		return upperAll(symbols)
	}

	return []string{cfg.DefaultSymbol}
}

// resolveLimits 风控参数：全局默认值基础上套用Redis的按代理覆盖
func (s *Source) resolveLimits(ctx context.Context, id string) types.RiskLimits {
	cfg := Get()

	limits := types.RiskLimits{
		MaxDrawdownPercent:     cfg.MaxDrawdownPercent,
		MaxPositionSizePercent: cfg.MaxPositionSizePercent,
		MaxTradesPerDay:        cfg.MaxTradesPerDay,
		MinWinRate:             cfg.MinWinRate,
		SlippageTolerancePct:   cfg.SlippageTolerancePct,
	}

	if s.client == nil {
		return limits
	}

	key := GetRedisKey(fmt.Sprintf("agent:%s:limits", id))
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return limits
	}

	if v, ok := fields["max_drawdown_percent"]; ok {
		if f, err := parseFloat(v); err == nil && f > 0 {
			limits.MaxDrawdownPercent = f
		}
	}
	if v, ok := fields["max_position_size_percent"]; ok {
		if f, err := parseFloat(v); err == nil && f > 0 {
			limits.MaxPositionSizePercent = f
		}
	}
	if v, ok := fields["max_trades_per_day"]; ok {
		if f, err := parseFloat(v); err == nil && f > 0 {
			limits.MaxTradesPerDay = int(f)
		}
	}
	if v, ok := fields["min_win_rate"]; ok {
		if f, err := parseFloat(v); err == nil && f >= 0 {
			limits.MinWinRate = f
		}
	}
	if v, ok := fields["slippage_tolerance_pct"]; ok {
		if f, err := parseFloat(v); err == nil && f > 0 {
			limits.SlippageTolerancePct = f
		}
	}

	return limits
}

func agentEnv(prefix, name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(prefix + name)); v != "" {
		return v
	}
	return fallback
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(s))
	}
	return out
}

func parseFloat(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

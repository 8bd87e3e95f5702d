package config

import (
	"context"
	"os"
	"testing"
)

func TestConfigLoad(t *testing.T) {
	os.Setenv("REDIS_HOST", "test-host")
	os.Setenv("REDIS_PORT", "6380")
	os.Setenv("DRY_RUN", "false")
	defer func() {
		os.Unsetenv("REDIS_HOST")
		os.Unsetenv("REDIS_PORT")
		os.Unsetenv("DRY_RUN")
	}()

	if err := Load(); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Config is nil")
	}

	if cfg.RedisHost != "test-host" {
		t.Errorf("Expected RedisHost to be 'test-host', got '%s'", cfg.RedisHost)
	}
	if cfg.RedisPort != 6380 {
		t.Errorf("Expected RedisPort to be 6380, got %d", cfg.RedisPort)
	}
	if cfg.DryRun != false {
		t.Errorf("Expected DryRun to be false, got %v", cfg.DryRun)
	}
}

func TestConfigDefaults(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg := Get()

	if cfg.ExchangeAPIKeyHeader != "X-MBX-APIKEY" {
		t.Errorf("Expected default API key header, got %q", cfg.ExchangeAPIKeyHeader)
	}
	if cfg.RecvWindowMs != 10000 {
		t.Errorf("Expected recvWindow 10000ms, got %d", cfg.RecvWindowMs)
	}
	if cfg.ExchangeTimeoutSec != 8.0 {
		t.Errorf("Expected 8s exchange timeout, got %v", cfg.ExchangeTimeoutSec)
	}
	if !cfg.DryRun {
		t.Error("DryRun should default to true")
	}
	if cfg.MaxDrawdownPercent != 20 {
		t.Errorf("Expected default max drawdown 20, got %v", cfg.MaxDrawdownPercent)
	}
	if cfg.TakerFeeRate != 0.00035 || cfg.MakerFeeRate != 0.0001 {
		t.Errorf("Fee rate defaults mismatch: taker=%v maker=%v", cfg.TakerFeeRate, cfg.MakerFeeRate)
	}
}

func TestGetRedisKey(t *testing.T) {
	key := GetRedisKey("agent:alpha:symbols")
	expected := "fleet:agent:alpha:symbols"
	if key != expected {
		t.Errorf("Expected '%s', got '%s'", expected, key)
	}
}

func TestLoadAgentsFromEnv(t *testing.T) {
	os.Setenv("AGENT_IDS", "alpha,beta")
	os.Setenv("AGENT_ALPHA_SYMBOLS", "btcusdt,ethusdt")
	os.Setenv("AGENT_ALPHA_STRATEGY", "Momentum")
	os.Setenv("AGENT_BETA_API_KEY", "beta-key")
	defer func() {
		os.Unsetenv("AGENT_IDS")
		os.Unsetenv("AGENT_ALPHA_SYMBOLS")
		os.Unsetenv("AGENT_ALPHA_STRATEGY")
		os.Unsetenv("AGENT_BETA_API_KEY")
	}()

	if err := Load(); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	agents, err := GetSource().LoadAgents(context.Background())
	if err != nil {
		t.Fatalf("加载代理清单失败: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("应有2个代理: got %d", len(agents))
	}

	alpha := agents[0]
	if alpha.ID != "alpha" {
		t.Errorf("代理ID不符: %s", alpha.ID)
	}
	if len(alpha.Symbols) != 2 || alpha.Symbols[0] != "BTCUSDT" || alpha.Symbols[1] != "ETHUSDT" {
		t.Errorf("交易对应转大写: %v", alpha.Symbols)
	}
	if alpha.Strategy != "momentum" {
		t.Errorf("策略名应转小写: %s", alpha.Strategy)
	}

	beta := agents[1]
	if beta.Credentials.APIKey != "beta-key" {
		t.Errorf("按代理凭证覆盖失败: %s", beta.Credentials.APIKey)
	}
	if beta.Strategy != "grid" {
		t.Errorf("默认策略应为grid: %s", beta.Strategy)
	}
	if beta.Limits.MaxDrawdownPercent != Get().MaxDrawdownPercent {
		t.Errorf("默认风控参数不符: %v", beta.Limits)
	}
}

func TestLoadAgentsSingleDefault(t *testing.T) {
	os.Unsetenv("AGENT_IDS")
	if err := Load(); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	agents, err := GetSource().LoadAgents(context.Background())
	if err != nil {
		t.Fatalf("加载代理清单失败: %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "default" {
		t.Errorf("AGENT_IDS为空时应退化为单代理: %+v", agents)
	}
	if len(agents[0].Symbols) != 1 || agents[0].Symbols[0] != Get().DefaultSymbol {
		t.Errorf("默认交易对不符: %v", agents[0].Symbols)
	}
}

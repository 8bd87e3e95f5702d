package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidateConfig 验证配置
func ValidateConfig() error {
	cfg := Get()
	var errors []string

	// 验证Redis配置
	if cfg.RedisHost == "" {
		errors = append(errors, "REDIS_HOST is required")
	}
	if cfg.RedisPort <= 0 || cfg.RedisPort > 65535 {
		errors = append(errors, fmt.Sprintf("REDIS_PORT must be between 1 and 65535, got %d", cfg.RedisPort))
	}

	// 验证交易所配置
	if cfg.ExchangeBaseURL == "" {
		errors = append(errors, "EXCHANGE_BASE_URL is required")
	}
	if !strings.HasPrefix(cfg.ExchangeBaseURL, "https://") {
		errors = append(errors, "EXCHANGE_BASE_URL must use https")
	}
	if cfg.ExchangeTimeoutSec <= 0 {
		errors = append(errors, "EXCHANGE_TIMEOUT_SEC must be positive")
	}
	if cfg.RecvWindowMs <= 0 {
		errors = append(errors, "EXCHANGE_RECV_WINDOW_MS must be positive")
	}

	// 验证凭证（实盘模式；多代理部署时每个代理各有凭证，由Supervisor逐个检查）
	if !cfg.DryRun && len(cfg.AgentIDs) == 0 {
		if cfg.APIKey == "" {
			errors = append(errors, "API_KEY is required when DRY_RUN=false")
		}
		if cfg.APISecret == "" {
			errors = append(errors, "API_SECRET is required when DRY_RUN=false")
		}
	}

	// 验证风控参数
	if cfg.MaxDrawdownPercent <= 0 || cfg.MaxDrawdownPercent >= 100 {
		errors = append(errors, fmt.Sprintf("MAX_DRAWDOWN_PERCENT must be in (0, 100), got %g", cfg.MaxDrawdownPercent))
	}
	if cfg.MaxPositionSizePercent <= 0 || cfg.MaxPositionSizePercent > 100 {
		errors = append(errors, fmt.Sprintf("MAX_POSITION_SIZE_PERCENT must be in (0, 100], got %g", cfg.MaxPositionSizePercent))
	}
	if cfg.MinNotionalUSD < 0 {
		errors = append(errors, "MIN_NOTIONAL_USD must not be negative")
	}

	// 验证策略参数
	if cfg.GridPositionSizeRatio <= 0 || cfg.GridPositionSizeRatio > 1 {
		errors = append(errors, fmt.Sprintf("GRID_POSITION_SIZE_RATIO must be in (0, 1], got %g", cfg.GridPositionSizeRatio))
	}
	if cfg.GridBuyThreshold >= 0 {
		errors = append(errors, "GRID_BUY_THRESHOLD must be negative (price below SMA)")
	}
	if cfg.GridSellThreshold <= 0 {
		errors = append(errors, "GRID_SELL_THRESHOLD must be positive (price above SMA)")
	}
	if cfg.GridScaleOutFraction <= 0 || cfg.GridScaleOutFraction >= 1 {
		errors = append(errors, fmt.Sprintf("GRID_SCALE_OUT_FRACTION must be in (0, 1), got %g", cfg.GridScaleOutFraction))
	}
	if cfg.MomentumFastWindow >= cfg.MomentumSlowWindow {
		errors = append(errors, "MOMENTUM_FAST_WINDOW must be smaller than MOMENTUM_SLOW_WINDOW")
	}

	// 验证tick间隔
	if cfg.TickIntervalSec < 1 {
		errors = append(errors, fmt.Sprintf("TICK_INTERVAL_SEC must be at least 1, got %g", cfg.TickIntervalSec))
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// ValidateAndExit 验证配置，失败时直接退出进程
func ValidateAndExit() {
	if err := ValidateConfig(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

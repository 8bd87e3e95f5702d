package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 配置结构体
type Config struct {
	// Redis配置
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// 交易所配置
	ExchangeBaseURL       string
	ExchangeAPIKeyHeader  string
	ExchangeTimeoutSec    float64
	RecvWindowMs          int64
	ExchangeRateLimitRPS  float64
	ExchangeRateLimitCap  int
	PriceCacheTTLSec      float64
	MakerFeeRate          float64
	TakerFeeRate          float64

	// 默认凭证（单代理部署时的环境变量回退）
	SignerAddress string
	APIKey        string
	APISecret     string

	// Dry-run模式
	DryRun bool

	// 代理配置
	AgentIDs      []string
	DefaultSymbol string
	TickIntervalSec float64

	// 风控默认值（可被配置源按代理覆盖）
	MaxDrawdownPercent     float64
	MaxPositionSizePercent float64
	MaxTradesPerDay        int
	MinWinRate             float64
	SlippageTolerancePct   float64
	MinNotionalUSD         float64

	// 网格/吸筹策略参数
	GridPositionSizeRatio float64
	GridBuyThreshold      float64
	GridSellThreshold     float64
	GridScaleOutThreshold float64
	GridScaleOutFraction  float64
	GridSMAWindow         int
	GridMinSamples        int
	GridMinEvalIntervalSec float64

	// 动量策略参数
	MomentumFastWindow int
	MomentumSlowWindow int

	// ML信号策略参数
	MLBuyScore  float64
	MLSellScore float64

	// 套利策略参数
	ArbSpreadThreshold float64
	ArbReferenceURL    string

	// listenKey维护
	ListenKeyKeepAliveSec float64

	// 观测流
	TickHistoryMaxLen  int
	OrderHistoryMaxLen int

	// Web配置
	WebEnabled bool
	WebPort    int

	// 日志配置
	LogLevel string
}

var globalConfig *Config

// Load 加载配置
func Load() error {
	_ = godotenv.Load()

	globalConfig = &Config{
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getIntEnv("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		ExchangeBaseURL:      getEnv("EXCHANGE_BASE_URL", "https://fapi.asterdex.com"),
		ExchangeAPIKeyHeader: getEnv("EXCHANGE_API_KEY_HEADER", "X-MBX-APIKEY"),
		ExchangeTimeoutSec:   getFloatEnv("EXCHANGE_TIMEOUT_SEC", 8.0),
		RecvWindowMs:         int64(getIntEnv("EXCHANGE_RECV_WINDOW_MS", 10000)),
		ExchangeRateLimitRPS: getFloatEnv("EXCHANGE_RATE_LIMIT_RPS", 10.0),
		ExchangeRateLimitCap: getIntEnv("EXCHANGE_RATE_LIMIT_CAP", 20),
		PriceCacheTTLSec:     getFloatEnv("PRICE_CACHE_TTL_SEC", 3.0),
		MakerFeeRate:         getFloatEnv("MAKER_FEE_RATE", 0.0001),
		TakerFeeRate:         getFloatEnv("TAKER_FEE_RATE", 0.00035),

		SignerAddress: getEnv("SIGNER_ADDRESS", ""),
		APIKey:        getEnv("API_KEY", ""),
		APISecret:     getEnv("API_SECRET", ""),

		DryRun: getBoolEnv("DRY_RUN", true),

		AgentIDs:        parseStringList(getEnv("AGENT_IDS", "")),
		DefaultSymbol:   getEnv("DEFAULT_SYMBOL", "BTCUSDT"),
		TickIntervalSec: getFloatEnv("TICK_INTERVAL_SEC", 15.0),

		MaxDrawdownPercent:     getFloatEnv("MAX_DRAWDOWN_PERCENT", 20.0),
		MaxPositionSizePercent: getFloatEnv("MAX_POSITION_SIZE_PERCENT", 20.0),
		MaxTradesPerDay:        getIntEnv("MAX_TRADES_PER_DAY", 50),
		MinWinRate:             getFloatEnv("MIN_WIN_RATE", 0.0),
		SlippageTolerancePct:   getFloatEnv("SLIPPAGE_TOLERANCE_PCT", 0.5),
		MinNotionalUSD:         getFloatEnv("MIN_NOTIONAL_USD", 5.0),

		GridPositionSizeRatio:  getFloatEnv("GRID_POSITION_SIZE_RATIO", 0.15),
		GridBuyThreshold:       getFloatEnv("GRID_BUY_THRESHOLD", -0.03),
		GridSellThreshold:      getFloatEnv("GRID_SELL_THRESHOLD", 0.05),
		GridScaleOutThreshold:  getFloatEnv("GRID_SCALE_OUT_THRESHOLD", 0.04),
		GridScaleOutFraction:   getFloatEnv("GRID_SCALE_OUT_FRACTION", 0.5),
		GridSMAWindow:          getIntEnv("GRID_SMA_WINDOW", 20),
		GridMinSamples:         getIntEnv("GRID_MIN_SAMPLES", 5),
		GridMinEvalIntervalSec: getFloatEnv("GRID_MIN_EVAL_INTERVAL_SEC", 60.0),

		MomentumFastWindow: getIntEnv("MOMENTUM_FAST_WINDOW", 5),
		MomentumSlowWindow: getIntEnv("MOMENTUM_SLOW_WINDOW", 20),

		MLBuyScore:  getFloatEnv("ML_BUY_SCORE", 0.65),
		MLSellScore: getFloatEnv("ML_SELL_SCORE", 0.35),

		ArbSpreadThreshold: getFloatEnv("ARB_SPREAD_THRESHOLD", 0.005),
		ArbReferenceURL:    getEnv("ARB_REFERENCE_URL", "https://fapi.binance.com"),

		ListenKeyKeepAliveSec: getFloatEnv("LISTEN_KEY_KEEPALIVE_SEC", 1800.0),

		TickHistoryMaxLen:  getIntEnv("TICK_HISTORY_MAX_LEN", 2000),
		OrderHistoryMaxLen: getIntEnv("ORDER_HISTORY_MAX_LEN", 2000),

		WebEnabled: getBoolEnv("WEB_ENABLED", true),
		WebPort:    getIntEnv("WEB_PORT", 8000),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	return nil
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// GetRedisKey 生成Redis键名
func GetRedisKey(name string) string {
	return "fleet:" + name
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		value = strings.TrimSpace(value)
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		value = strings.TrimSpace(value)
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		value = strings.TrimSpace(value)
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

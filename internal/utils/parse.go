package utils

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// ParseFloatValue 数值强制转换：交易所返回的JSON里数字可能是string、float或null。
// null和无法解析的值按0处理，下游只操作完整类型化的模型。
func ParseFloatValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		if val == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("parse float from %q: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

// ParseBoolValue 布尔强制转换
func ParseBoolValue(v interface{}) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, fmt.Errorf("parse bool from %q: %w", val, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("unexpected bool type %T", v)
	}
}

// GetFloat 从map中读取浮点数，缺失或类型不符时返回默认值
func GetFloat(m map[string]interface{}, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		if f, err := ParseFloatValue(v); err == nil {
			return f
		}
	}
	return def
}

// GetString 从map中读取字符串，缺失时返回默认值
func GetString(m map[string]interface{}, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// WithDefaultTimeout 默认超时上下文（5秒）
func WithDefaultTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Second)
}

// WithRequestTimeout 交易所请求超时上下文（8秒硬超时）
func WithRequestTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 8*time.Second)
}

package exchange

import (
	"strconv"
	"sync"
	"time"

	"github.com/quantfleet/quantfleet-go/internal/config"
)

// RateLimiter 令牌桶限流器。所有代理共享同一个桶——限频配额按进程计，
// 不按API密钥计，保守处理更安全。
type RateLimiter struct {
	rate       float64
	capacity   float64
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

var sharedRateLimiter *RateLimiter

// GetSharedRateLimiter 获取进程内共享限流器
func GetSharedRateLimiter() *RateLimiter {
	if sharedRateLimiter == nil {
		cfg := config.Get()
		sharedRateLimiter = NewRateLimiter(cfg.ExchangeRateLimitRPS, cfg.ExchangeRateLimitCap)
	}
	return sharedRateLimiter
}

// NewRateLimiter 创建限流器
func NewRateLimiter(rate float64, capacity int) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		lastUpdate: time.Now(),
	}
}

// Acquire 尝试获取令牌
func (rl *RateLimiter) Acquire(tokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastUpdate).Seconds()
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	rl.lastUpdate = now

	if rl.tokens >= float64(tokens) {
		rl.tokens -= float64(tokens)
		return true
	}
	return false
}

// Wait 阻塞直到获取到令牌
func (rl *RateLimiter) Wait(tokens int) {
	for !rl.Acquire(tokens) {
		waitTime := (float64(tokens) - rl.tokens) / rl.rate
		if waitTime < 0 {
			waitTime = 0.1
		}
		if waitTime > 1.0 {
			waitTime = 1.0
		}
		time.Sleep(time.Duration(waitTime * float64(time.Second)))
	}
}

// BackoffManager 退避管理器，处理429/418限频响应。
// 退避只推迟后续请求，从不重发失败的请求。
type BackoffManager struct {
	backoffUntil map[string]time.Time
	backoffLevel map[string]int
	mu           sync.RWMutex
	maxLevel     int
	maxSec       float64
}

var sharedBackoff = &BackoffManager{
	backoffUntil: make(map[string]time.Time),
	backoffLevel: make(map[string]int),
	maxLevel:     6,
	maxSec:       60.0,
}

// GetSharedBackoff 获取进程内共享退避管理器
func GetSharedBackoff() *BackoffManager {
	return sharedBackoff
}

// WaitBackoff 等待退避窗口结束
func (bm *BackoffManager) WaitBackoff(key string) {
	for {
		bm.mu.RLock()
		until, exists := bm.backoffUntil[key]
		bm.mu.RUnlock()

		if !exists || time.Now().After(until) {
			return
		}

		wait := time.Until(until)
		if wait > time.Second {
			wait = time.Second
		}
		time.Sleep(wait)
	}
}

// SetBackoff 设置退避窗口
func (bm *BackoffManager) SetBackoff(key string, waitSec float64) {
	if waitSec <= 0 {
		return
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	until := time.Now().Add(time.Duration(waitSec * float64(time.Second)))
	cur, exists := bm.backoffUntil[key]
	if !exists || until.After(cur) {
		bm.backoffUntil[key] = until
	}
}

// ResetBackoff 成功响应后重置退避
func (bm *BackoffManager) ResetBackoff(key string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	delete(bm.backoffUntil, key)
	bm.backoffLevel[key] = 0
}

// OnRateLimited 记录一次限频，返回建议的等待秒数
func (bm *BackoffManager) OnRateLimited(key string, status int, retryAfter *float64) float64 {
	bm.mu.Lock()
	level := bm.backoffLevel[key]
	bm.backoffLevel[key] = min(bm.maxLevel, level+1)
	bm.mu.Unlock()

	var waitSec float64
	if retryAfter != nil {
		waitSec = *retryAfter
	} else {
		// 418比429严厉，从更长的基准起步
		base := 1.0
		if status == 418 {
			base = 60.0
		}
		multiplier := 1.0
		for i := 0; i < min(level, bm.maxLevel); i++ {
			multiplier *= 2.0
		}
		waitSec = min(base*multiplier, bm.maxSec)
	}

	// 抖动，避免多个runner同时恢复
	waitSec = max(1.0, min(waitSec, bm.maxSec))
	jitter := 0.1 * waitSec
	if jitter > 1.0 {
		jitter = 1.0
	}
	waitSec += jitter

	bm.SetBackoff(key, waitSec)
	return waitSec
}

// ParseRetryAfter 解析Retry-After头（秒数或HTTP日期）
func ParseRetryAfter(value string) *float64 {
	if value == "" {
		return nil
	}

	if sec, err := strconv.ParseFloat(value, 64); err == nil {
		if sec >= 0 {
			return &sec
		}
	}

	if t, err := time.Parse(time.RFC1123, value); err == nil {
		wait := time.Until(t).Seconds()
		if wait >= 0 {
			return &wait
		}
	}

	return nil
}

package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quantfleet/quantfleet-go/internal/config"
)

var redisClient *redis.Client

// RedisClient Redis客户端类型别名（供其他包使用）
type RedisClient = *redis.Client

// GetRedisClient 获取Redis客户端（单例模式）
func GetRedisClient() *redis.Client {
	if redisClient == nil {
		cfg := config.Get()
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		// 测试连接；失败不panic，配置源和观测流都有降级路径
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			l, _ := zap.NewDevelopment()
			l.Error("Redis连接失败",
				zap.Error(err),
				zap.String("host", cfg.RedisHost),
				zap.Int("port", cfg.RedisPort),
			)
		}
	}
	return redisClient
}

// CloseRedisClient 关闭Redis客户端
func CloseRedisClient() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}

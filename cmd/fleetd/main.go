package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quantfleet/quantfleet-go/internal/agent"
	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/exchange"
	"github.com/quantfleet/quantfleet-go/internal/metrics"
	"github.com/quantfleet/quantfleet-go/internal/observer"
	"github.com/quantfleet/quantfleet-go/internal/retry"
	"github.com/quantfleet/quantfleet-go/internal/utils"
	"github.com/quantfleet/quantfleet-go/internal/web"
	"github.com/quantfleet/quantfleet-go/pkg/types"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	// 加载配置
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 验证配置
	config.ValidateAndExit()

	cfg := config.Get()

	// 初始化日志
	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := utils.GetLogger("main")

	// 初始化Redis并注入到配置源和观测汇聚点
	redisClient := utils.GetRedisClient()
	defer utils.CloseRedisClient()
	config.GetSource().SetRedisClient(redisClient)

	sink := observer.GetSink()
	sink.SetRedisClient(redisClient)

	logger.Infow("🚀 QuantFleet启动",
		"redis_host", cfg.RedisHost,
		"redis_port", cfg.RedisPort,
		"dry_run", cfg.DryRun,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// 启动舰队监督器
	supervisor := agent.NewSupervisor(cfg, sink, logger)
	if err := supervisor.Start(ctx); err != nil {
		logger.Fatalw("启动监督器失败", "error", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		supervisor.Wait()
	}()

	// 启动listen key保活（只在实盘模式有意义）
	if !cfg.DryRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Errorw("listen key保活panic", "error", r)
				}
			}()
			runListenKeyKeepAlive(ctx, cfg, logger)
		}()
	}

	// 启动Web服务
	if cfg.WebEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Errorw("Web服务panic", "error", r)
				}
			}()
			server := web.NewServer(cfg, sink, supervisor, redisClient)
			if err := server.Run(ctx); err != nil && err != context.Canceled {
				logger.Errorw("Web服务器错误", "error", err)
			}
		}()
	}

	// 启动性能指标收集器
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("指标收集器panic", "error", r)
			}
		}()
		metrics.StartCollector(ctx)
	}()

	logger.Info("✅ 所有服务已启动")

	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("收到停止信号，正在关闭...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ 所有服务已停止")
	case <-shutdownCtx.Done():
		logger.Warn("⚠️  关闭超时，强制退出")
	}
}

// runListenKeyKeepAlive 维护用户数据流的listen key：
// 启动时创建，之后按配置的间隔续期，续期失败按重试策略退避后重建。
func runListenKeyKeepAlive(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) {
	client := exchange.NewClient(types.Credentials{
		SignerAddress: cfg.SignerAddress,
		APIKey:        cfg.APIKey,
		APISecret:     cfg.APISecret,
	})
	policy := retry.DefaultPolicy()

	createKey := func() error {
		key, err := client.CreateListenKey(ctx)
		if err != nil {
			return err
		}
		logger.Infow("listen key已创建", "key_prefix", keyPrefix(key))
		return nil
	}

	if err := policy.Do(ctx, createKey); err != nil {
		logger.Errorw("创建listen key失败，用户数据流不可用", "error", err)
		return
	}

	interval := time.Duration(cfg.ListenKeyKeepAliveSec * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := client.CloseListenKey(closeCtx); err != nil {
				logger.Warnw("关闭listen key失败", "error", err)
			}
			closeCancel()
			return
		case <-ticker.C:
			err := policy.Do(ctx, func() error {
				return client.KeepAliveListenKey(ctx)
			})
			if err != nil {
				logger.Warnw("listen key续期失败，尝试重建", "error", err)
				if err := policy.Do(ctx, createKey); err != nil {
					logger.Errorw("重建listen key失败", "error", err)
				}
			}
		}
	}
}

// keyPrefix 日志里只显示key前缀，避免泄露完整凭证
func keyPrefix(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}

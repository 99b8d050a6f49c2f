package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// @title           Library API
// @version         1.0
// @description     图书借阅服务：目录管理、借阅/归还、借阅历史与逾期报表
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 格式: Bearer <token>

// main 启动流程：
// 配置 → 日志 → 指标/追踪 → 依赖注入 → HTTP + gRPC + 逾期提醒 → 优雅关闭
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if _, err := logger.Init(cfg.Log.Logger()); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	if cfg.Metrics.Enabled {
		metrics.InitMetrics()
	}

	shutdownTracer, err := tracing.InitTracer(cfg.Tracing.Tracer())
	if err != nil {
		logger.L().Fatal("初始化链路追踪失败", zap.Error(err))
	}

	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		logger.L().Fatal("初始化应用失败", zap.Error(err))
	}

	logger.L().Info("配置加载成功",
		zap.Int("http_port", cfg.Server.Port),
		zap.Int("grpc_port", cfg.Server.GRPCPort),
		zap.String("mode", cfg.Server.Mode),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Notifier.Run(workerCtx)
	}()

	go func() {
		logger.L().Info("HTTP服务启动", zap.String("addr", app.HTTP.Addr))
		if err := app.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("HTTP服务异常退出", zap.Error(err))
			stop()
		}
	}()

	go func() {
		if err := app.GRPC.ListenAndServe(); err != nil {
			logger.L().Error("gRPC服务异常退出", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.L().Info("收到关闭信号，开始优雅关闭")

	shutdownCtx, cancel := shutdownTimeout(cfg)
	defer cancel()

	// 先摘除健康检查，再停止接收请求
	app.GRPC.SetServing(false)
	if err := app.HTTP.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("HTTP服务关闭失败", zap.Error(err))
	}
	app.GRPC.Stop(shutdownCtx)

	cancelWorker()
	wg.Wait()

	cleanup()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.L().Warn("关闭链路追踪失败", zap.Error(err))
	}

	logger.L().Info("服务已安全关闭")
}

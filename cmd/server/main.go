// orplan 手术间排班优化服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/orplan/internal/cache"
	"github.com/paiban/orplan/internal/config"
	"github.com/paiban/orplan/internal/database"
	"github.com/paiban/orplan/internal/handler"
	"github.com/paiban/orplan/internal/queue"
	"github.com/paiban/orplan/internal/repository"
	"github.com/paiban/orplan/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.App.LogLevel
	if cfg.IsProduction() {
		logCfg.Format = "json"
	}
	logger.Init(logCfg)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("orplan 排班服务启动中")

	engine, err := cfg.Optimizer.LoadEngine()
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Optimizer.EngineConfigPath).Msg("加载引擎配置失败")
		os.Exit(1)
	}

	deps := handler.Deps{
		Config: cfg,
		Engine: engine,
		Checks: make(map[string]handler.HealthChecker),
		Build:  handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
	}
	var closers []func() error

	// 可选依赖：未启用时对应接口返回 503 或直接跳过
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		deps.Store = repository.NewPlanRepository(db)
		deps.Checks["database"] = db
		closers = append(closers, db.Close)
	}

	if cfg.Redis.Enabled {
		rc, err := cache.New(&cfg.Redis)
		if err != nil {
			// 缓存不可用不影响优化
			logger.Warn().Err(err).Msg("结果缓存不可用，已跳过")
		} else {
			deps.Cache = rc
			deps.Checks["redis"] = rc
			closers = append(closers, rc.Close)
		}
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := queue.Dial(&cfg.RabbitMQ)
		if err != nil {
			logger.Error().Err(err).Msg("任务队列连接失败")
			os.Exit(1)
		}
		deps.Jobs = queue.NewPublisher(conn, &cfg.RabbitMQ)
		deps.Checks["rabbitmq"] = conn
		closers = append(closers, conn.Close)
	}

	h, err := handler.NewHandler(deps)
	if err != nil {
		logger.Error().Err(err).Msg("创建处理器失败")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("api", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
			Bool("database", deps.Store != nil).
			Bool("cache", deps.Cache != nil).
			Bool("jobs", deps.Jobs != nil).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn().Err(err).Msg("释放资源失败")
		}
	}

	logger.Info().Msg("服务器已关闭")
}

// orplan 异步优化任务消费进程

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paiban/orplan/internal/config"
	"github.com/paiban/orplan/internal/database"
	"github.com/paiban/orplan/internal/metrics"
	"github.com/paiban/orplan/internal/queue"
	"github.com/paiban/orplan/internal/repository"
	"github.com/paiban/orplan/internal/schedule"
	"github.com/paiban/orplan/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
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
	logger.Info().Str("version", Version).Str("git_commit", GitCommit).Msg("orplan 任务消费进程启动中")

	engine, err := cfg.Optimizer.LoadEngine()
	if err != nil {
		logger.Error().Err(err).Msg("加载引擎配置失败")
		os.Exit(1)
	}

	conn, err := queue.Dial(&cfg.RabbitMQ)
	if err != nil {
		logger.Error().Err(err).Msg("任务队列连接失败")
		os.Exit(1)
	}
	defer conn.Close()

	worker := queue.NewWorker(conn, &cfg.RabbitMQ, engine)
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()
		store := repository.NewPlanRepository(db)
		worker = worker.WithSink(queue.StoreSink(store))

		if cfg.Optimizer.Schedule != "" {
			job := schedule.NewDayOptimizer(store, engine, cfg.Optimizer.ScheduleDayOffset)
			sched, err := schedule.New(cfg.Optimizer.Schedule, job, cfg.Optimizer.ScheduleTimeout)
			if err != nil {
				logger.Error().Err(err).Msg("定时预优化配置无效")
				os.Exit(1)
			}
			sched.Start()
			defer sched.Stop()
		}
	} else if cfg.Optimizer.Schedule != "" {
		logger.Warn().Msg("未启用数据库，定时预优化已跳过")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.WorkerAddr != "" {
		srv = metricsServer(cfg, conn)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", srv.Addr).Msg("监控服务启动失败")
			}
		}()
	}

	err = worker.Run(ctx)
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("任务消费异常退出")
		os.Exit(1)
	}
	logger.Info().Msg("任务消费进程已退出")
}

// metricsServer 暴露监控指标与存活检查
func metricsServer(cfg *config.Config, conn *queue.Conn) *http.Server {
	r := chi.NewRouter()
	r.Handle(cfg.Metrics.Path, metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              cfg.Metrics.WorkerAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

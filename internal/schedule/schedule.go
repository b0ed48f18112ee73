// Package schedule 定时预优化次日排班
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paiban/orplan/internal/metrics"
	"github.com/paiban/orplan/internal/repository"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

// DayOptimizer 读取目标日期的排班，优化后写回仓储
type DayOptimizer struct {
	store  repository.PlanStore
	engine *model.EngineConfig
	offset int
	now    func() time.Time
}

// NewDayOptimizer offset 为相对今天的天数，1 表示次日
func NewDayOptimizer(store repository.PlanStore, engine *model.EngineConfig, offset int) *DayOptimizer {
	return &DayOptimizer{
		store:  store,
		engine: engine,
		offset: offset,
		now:    time.Now,
	}
}

// TargetDay 返回本次要优化的日期 (YYYY-MM-DD)
func (d *DayOptimizer) TargetDay() string {
	return d.now().AddDate(0, 0, d.offset).Format(time.DateOnly)
}

// RunOnce 优化目标日期并保存结果
func (d *DayOptimizer) RunOnce(ctx context.Context) (*model.OptimizationRun, error) {
	day := d.TargetDay()
	plan, err := d.store.LoadDayPlan(ctx, day)
	if err != nil {
		return nil, err
	}
	if id := duplicated(plan); id != "" {
		return nil, apperrors.DuplicateStaff(id)
	}

	start := time.Now()
	res := optimizer.Optimize(plan, d.engine)
	duration := time.Since(start)
	metrics.RecordOptimization(metrics.Summarize("cron", day, res, duration))

	return repository.SaveResult(ctx, d.store, day, res, duration)
}

func duplicated(plan *model.DayPlan) string {
	seen := make(map[string]bool)
	for _, a := range plan.Assignments {
		for _, id := range a.StaffIDs {
			if seen[id] {
				return id
			}
			seen[id] = true
		}
	}
	return ""
}

// Scheduler 按 cron 表达式触发预优化
type Scheduler struct {
	cron    *cron.Cron
	job     *DayOptimizer
	timeout time.Duration
}

// New 创建调度器，spec 为带秒字段的 cron 表达式，如 "0 30 18 * * *"
func New(spec string, job *DayOptimizer, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		job:     job,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "定时表达式无效").WithField("schedule", spec)
	}
	return s, nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		logger.Info().Time("next", e.Next).Msg("定时预优化已启用")
	}
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info().Msg("定时预优化已停止")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	day := s.job.TargetDay()
	run, err := s.job.RunOnce(ctx)
	if err != nil {
		metrics.RecordJob("failed")
		logger.Error().Err(err).Str("day", day).Msg("定时预优化失败")
		return
	}
	metrics.RecordJob("completed")
	logger.Info().
		Str("day", day).
		Str("run_id", run.ID.String()).
		Int("score", run.FinalScore).
		Int("alerts", len(run.Alerts)).
		Msg("定时预优化完成")
}

package repository

import (
	"context"
	"time"

	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

// NewRun 由优化结果生成运行记录
func NewRun(day string, res *optimizer.Result, duration time.Duration) *model.OptimizationRun {
	return &model.OptimizationRun{
		BaseModel:    model.NewBaseModel(),
		Day:          day,
		Status:       res.Status,
		Rounds:       res.Rounds,
		InitialScore: res.InitialScore,
		FinalScore:   res.Score,
		Alerts:       res.Alerts,
		Duration:     duration,
	}
}

// SaveResult 保存优化后的分配与运行记录
func SaveResult(ctx context.Context, store PlanStore, day string, res *optimizer.Result, duration time.Duration) (*model.OptimizationRun, error) {
	if err := store.SaveAssignments(ctx, day, res.Assignments); err != nil {
		return nil, err
	}
	run := NewRun(day, res, duration)
	if err := store.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

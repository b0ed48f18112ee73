package optimizer

import (
	"context"
	"sync"

	"github.com/paiban/orplan/pkg/model"
)

// BatchRunner 并行优化多个互不相关的单日排班
// 每个任务独享输入快照，单个任务内部仍是单线程
type BatchRunner struct {
	workers   int
	optimizer *LocalSearchOptimizer
}

// NewBatchRunner 创建批量优化器
func NewBatchRunner(workers int, config *model.EngineConfig) *BatchRunner {
	if workers <= 0 {
		workers = 4
	}
	return &BatchRunner{
		workers:   workers,
		optimizer: NewLocalSearchOptimizer(config),
	}
}

// BatchResult 单个排班的优化结果
type BatchResult struct {
	Index  int     `json:"index"`
	Date   string  `json:"date"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// Run 并行优化，结果与输入顺序一致
// 取消 context 只会停止派发新任务，正在运行的任务照常完成
func (b *BatchRunner) Run(ctx context.Context, plans []*model.DayPlan) []BatchResult {
	if len(plans) == 0 {
		return nil
	}

	results := make([]BatchResult, len(plans))
	for i, p := range plans {
		results[i] = BatchResult{Index: i, Date: p.Date, Err: context.Canceled}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Result = b.optimizer.Optimize(plans[i])
				results[i].Err = nil
			}
		}()
	}

dispatch:
	for i := range plans {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Result == nil {
				results[i].Err = err
			}
		}
	}
	return results
}

// Summary 汇总批量结果
func Summary(results []BatchResult) map[string]int {
	summary := map[string]int{"total": len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary["skipped"]++
		case len(r.Result.Alerts) == 0:
			summary["fully_staffed"]++
		default:
			summary["with_alerts"]++
		}
	}
	return summary
}

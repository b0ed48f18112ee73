package swap

import (
	"fmt"
	"sort"

	"github.com/paiban/orplan/pkg/model"
)

// Recommender 岗位替换推荐器
type Recommender struct {
	evaluator *SwapEvaluator
}

// NewRecommender 创建替换推荐器
func NewRecommender(config *model.EngineConfig) *Recommender {
	return &Recommender{
		evaluator: NewSwapEvaluator(config),
	}
}

// Recommendation 替换推荐
type Recommendation struct {
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
	Qualified bool   `json:"qualified"`
	Delta     int    `json:"delta"`
	Score     int    `json:"score"` // 替换后全日总分
	Reason    string `json:"reason"`
	Rank      int    `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	Limit              int      // 最大推荐数量，<=0 不限制
	IncludeUnqualified bool     // 是否包含资质不符的候选人
	ExcludeStaff       []string // 排除的人员
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{Limit: 5}
}

// Recommend 为指定岗位推荐待命人员，按总分变化降序，相同时按花名册顺序
func (r *Recommender) Recommend(plan *model.DayPlan, roomID string, slot, limit int) ([]Recommendation, error) {
	opts := DefaultRecommendOptions()
	opts.Limit = limit
	return r.RecommendWithOptions(plan, roomID, slot, opts)
}

// RecommendWithOptions 按选项推荐
func (r *Recommender) RecommendWithOptions(plan *model.DayPlan, roomID string, slot int, opts *RecommendOptions) ([]Recommendation, error) {
	if opts == nil {
		opts = DefaultRecommendOptions()
	}
	exclude := make(map[string]bool, len(opts.ExcludeStaff))
	for _, id := range opts.ExcludeStaff {
		exclude[id] = true
	}

	bench := plan.Bench
	if bench == nil {
		bench = plan.DeriveBench()
	}
	onBench := make(map[string]bool, len(bench))
	for _, id := range bench {
		onBench[id] = true
	}
	assigned := plan.AssignedSet()

	candidates := make([]Recommendation, 0, len(bench))
	for _, s := range plan.Staff {
		if !onBench[s.ID] || assigned[s.ID] || exclude[s.ID] {
			continue
		}
		eval, err := r.evaluator.EvaluateSwap(plan, &SwapRequest{RoomID: roomID, Slot: slot, StaffIn: s.ID})
		if err != nil {
			return nil, err
		}
		if !eval.Verdict.Qualified && !opts.IncludeUnqualified {
			continue
		}
		candidates = append(candidates, Recommendation{
			StaffID:   s.ID,
			StaffName: s.Name,
			Qualified: eval.Verdict.Qualified,
			Delta:     eval.Delta,
			Score:     eval.ScoreAfter,
			Reason:    generateReason(s, eval),
		})
	}

	// 稳定排序保留花名册顺序
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Delta > candidates[j].Delta
	})

	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

// generateReason 生成推荐理由
func generateReason(s *model.Staff, eval *SwapEvaluation) string {
	if !eval.Verdict.Qualified {
		return eval.Verdict.Message
	}

	var reason string
	switch eval.Kind {
	case "replace":
		reason = fmt.Sprintf("替换 %s", eval.StaffOut)
	default:
		reason = "补位"
	}
	if s.IsLead {
		reason += "，具备带台资质"
	}
	if eval.Delta > 0 {
		reason += fmt.Sprintf("，总分 +%d", eval.Delta)
	} else {
		reason += fmt.Sprintf("，总分 %d", eval.Delta)
	}
	return reason
}

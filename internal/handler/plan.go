package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/paiban/orplan/internal/cache"
	"github.com/paiban/orplan/internal/config"
	"github.com/paiban/orplan/internal/constraints"
	"github.com/paiban/orplan/internal/metrics"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
	"github.com/paiban/orplan/pkg/scheduler/rules"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
	"github.com/paiban/orplan/pkg/stats"
	"github.com/paiban/orplan/pkg/swap"
	"github.com/paiban/orplan/pkg/validator"
)

// PlanRequest 携带单日排班与可选引擎配置的请求
// Config 按字段覆盖服务端默认配置
type PlanRequest struct {
	Plan   *model.DayPlan  `json:"plan" validate:"required"`
	Config json.RawMessage `json:"config,omitempty"`
}

// OptimizeRequest 优化请求
type OptimizeRequest struct {
	PlanRequest
	NoCache bool `json:"no_cache,omitempty"`
}

// OptimizeResponse 优化响应
type OptimizeResponse struct {
	*optimizer.Result
	Cached     bool                    `json:"cached"`
	Coverage   *stats.CoverageMetrics  `json:"coverage"`
	Breakdown  []scoring.RoomBreakdown `json:"breakdown"`
	DurationMS int64                   `json:"duration_ms"`
}

// ScoreResponse 评分响应
type ScoreResponse struct {
	Score int                     `json:"score"`
	Rooms []scoring.RoomBreakdown `json:"rooms"`
}

// ValidateResponse 验证响应
type ValidateResponse struct {
	Valid   bool              `json:"valid"`
	Issues  []validator.Issue `json:"issues"`
	Summary map[string]int    `json:"summary"`
}

// QualifyRequest 资质判定请求
type QualifyRequest struct {
	PlanRequest
	StaffID string `json:"staff_id" validate:"required"`
	RoomID  string `json:"room_id" validate:"required"`
}

// RecommendRequest 替换推荐请求
type RecommendRequest struct {
	PlanRequest
	RoomID             string   `json:"room_id" validate:"required"`
	Slot               int      `json:"slot" validate:"gte=0"`
	Limit              int      `json:"limit" validate:"gte=0,lte=100"`
	IncludeUnqualified bool     `json:"include_unqualified,omitempty"`
	ExcludeStaff       []string `json:"exclude_staff,omitempty"`
}

// EvaluateSwapRequest 替换评估请求
type EvaluateSwapRequest struct {
	PlanRequest
	swap.SwapRequest
}

// Optimize 优化单日排班
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, appErr := h.engineFor(req.Config)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	req.Plan.Normalize()
	if appErr := rejectDuplicates(req.Plan); appErr != nil {
		respondError(w, appErr)
		return
	}

	start := time.Now()
	result, cached := h.optimizeCached(r.Context(), req.Plan, cfg, req.NoCache)
	duration := time.Since(start)
	if !cached {
		metrics.RecordOptimization(metrics.Summarize("http", req.Plan.Date, result, duration))
	}

	resp := h.optimizeResponse(req.Plan, cfg, result)
	resp.Cached = cached
	resp.DurationMS = duration.Milliseconds()
	respondJSON(w, http.StatusOK, resp)
}

// optimizeCached 命中缓存时直接返回，缓存故障不影响优化
func (h *Handler) optimizeCached(ctx context.Context, plan *model.DayPlan, cfg *model.EngineConfig, noCache bool) (*optimizer.Result, bool) {
	if h.cache == nil || noCache {
		return optimizer.Optimize(plan, cfg), false
	}

	log := logger.WithContext(ctx)
	key, err := cache.Key(plan, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("计算缓存键失败")
		return optimizer.Optimize(plan, cfg), false
	}

	if res, ok, err := h.cache.Get(ctx, key); err != nil {
		metrics.RecordCache("error")
		log.Warn().Err(err).Msg("读取优化缓存失败")
	} else if ok {
		metrics.RecordCache("hit")
		return res, true
	} else {
		metrics.RecordCache("miss")
	}

	res := optimizer.Optimize(plan, cfg)
	if err := h.cache.Set(ctx, key, res); err != nil {
		metrics.RecordCache("error")
		log.Warn().Err(err).Msg("写入优化缓存失败")
	}
	return res, false
}

func (h *Handler) optimizeResponse(plan *model.DayPlan, cfg *model.EngineConfig, result *optimizer.Result) *OptimizeResponse {
	scorer := scoring.NewScorer(cfg, plan.Pairings)
	coverage := stats.NewCoverageAnalyzer(cfg.SpecialtyOverrides).Analyze(plan.Rooms, result.Assignments, plan.Staff)
	if plan.Date != "" {
		metrics.SetFillRate(plan.Date, coverage.FillRate)
	}
	return &OptimizeResponse{
		Result:    result,
		Coverage:  coverage,
		Breakdown: scorer.Breakdown(result.Assignments, plan.Rooms, plan.Staff),
	}
}

// Score 计算排班总分与各手术间明细
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, appErr := h.engineFor(req.Config)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	req.Plan.Normalize()

	scorer := scoring.NewScorer(cfg, req.Plan.Pairings)
	rooms := scorer.Breakdown(req.Plan.Assignments, req.Plan.Rooms, req.Plan.Staff)
	total := 0
	for _, b := range rooms {
		total += b.Score
	}
	respondJSON(w, http.StatusOK, ScoreResponse{Score: total, Rooms: rooms})
}

// Validate 检查排班问题
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, appErr := h.engineFor(req.Config)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	req.Plan.Normalize()

	issues := validator.NewDetector(nil).DetectAll(req.Plan, rules.NewEngine(cfg.Rules))
	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:   !validator.HasErrors(issues),
		Issues:  issues,
		Summary: validator.Summarize(issues),
	})
}

// Qualify 判定人员是否具备手术间资质
func (h *Handler) Qualify(w http.ResponseWriter, r *http.Request) {
	var req QualifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, appErr := h.engineFor(req.Config)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	room, ok := req.Plan.RoomByID()[req.RoomID]
	if !ok {
		respondError(w, apperrors.UnknownRoom(req.RoomID))
		return
	}
	staff, ok := req.Plan.StaffByID()[req.StaffID]
	if !ok {
		respondError(w, apperrors.UnknownStaff(req.StaffID))
		return
	}

	respondJSON(w, http.StatusOK, rules.NewEngine(cfg.Rules).Check(staff, room))
}

// Recommend 为指定岗位推荐待命人员
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, appErr := h.engineFor(req.Config)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	req.Plan.Normalize()

	opts := swap.DefaultRecommendOptions()
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	opts.IncludeUnqualified = req.IncludeUnqualified
	opts.ExcludeStaff = req.ExcludeStaff

	recs, err := swap.NewRecommender(cfg).RecommendWithOptions(req.Plan, req.RoomID, req.Slot, opts)
	if err != nil {
		respondError(w, apperrors.From(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room_id":         req.RoomID,
		"slot":            req.Slot,
		"recommendations": recs,
	})
}

// EvaluateSwap 评估单个岗位的替换
func (h *Handler) EvaluateSwap(w http.ResponseWriter, r *http.Request) {
	var req EvaluateSwapRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, appErr := h.engineFor(req.Config)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	req.Plan.Normalize()

	eval, err := swap.NewSwapEvaluator(cfg).EvaluateSwap(req.Plan, &req.SwapRequest)
	if err != nil {
		respondError(w, apperrors.From(err))
		return
	}
	respondJSON(w, http.StatusOK, eval)
}

// EngineConfig 返回服务端引擎配置
func (h *Handler) EngineConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine)
}

// ConstraintLibrary 返回硬约束与评分项说明，?group=category 时按分类分组
func (h *Handler) ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("group") == "category" {
		respondJSON(w, http.StatusOK, map[string]interface{}{"library": constraints.GetByCategory(h.engine)})
		return
	}
	table := rules.NewRuleTable(h.engine.Rules...)
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{
		Library:     constraints.GetLibrary(h.engine),
		Rules:       table.All(),
		RuleSummary: table.Summary(),
	})
}

// engineFor 以服务端配置为基础叠加请求中的配置
func (h *Handler) engineFor(raw json.RawMessage) (*model.EngineConfig, *apperrors.AppError) {
	cfg, err := config.OverlayEngineConfig(h.engine, raw)
	if err != nil {
		return nil, apperrors.From(err)
	}
	return cfg, nil
}

// rejectDuplicates 同一人员出现在多个岗位时拒绝优化
func rejectDuplicates(plan *model.DayPlan) *apperrors.AppError {
	seen := make(map[string]bool)
	for _, a := range plan.Assignments {
		for _, id := range a.StaffIDs {
			if seen[id] {
				return apperrors.DuplicateStaff(id)
			}
			seen[id] = true
		}
	}
	return nil
}

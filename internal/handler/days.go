package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paiban/orplan/internal/metrics"
	"github.com/paiban/orplan/internal/repository"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

type dayCtxKey struct{}

// DayOptimizeResponse 按日期优化响应
type DayOptimizeResponse struct {
	*OptimizeResponse
	Run *model.OptimizationRun `json:"run"`
}

func (h *Handler) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			respondError(w, apperrors.New(apperrors.CodeUnavailable, "数据库未启用"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// dayParam 校验路径中的日期 (YYYY-MM-DD)
func dayParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		day := chi.URLParam(r, "date")
		if _, err := time.Parse(time.DateOnly, day); err != nil {
			respondError(w, apperrors.InvalidInput("date", "日期格式应为 YYYY-MM-DD"))
			return
		}
		ctx := context.WithValue(r.Context(), dayCtxKey{}, day)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func dayFrom(ctx context.Context) string {
	day, _ := ctx.Value(dayCtxKey{}).(string)
	return day
}

// GetDayPlan 读取某日排班
func (h *Handler) GetDayPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.store.LoadDayPlan(r.Context(), dayFrom(r.Context()))
	if err != nil {
		respondError(w, apperrors.From(err))
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// OptimizeDay 读取某日排班并优化，结果写回数据库
// ?dry_run=true 时只返回结果不保存
func (h *Handler) OptimizeDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day := dayFrom(ctx)
	log := logger.WithContext(ctx)

	plan, err := h.store.LoadDayPlan(ctx, day)
	if err != nil {
		respondError(w, apperrors.From(err))
		return
	}
	if appErr := rejectDuplicates(plan); appErr != nil {
		respondError(w, appErr)
		return
	}

	start := time.Now()
	result := optimizer.Optimize(plan, h.engine)
	duration := time.Since(start)
	metrics.RecordOptimization(metrics.Summarize("http", day, result, duration))

	resp := &DayOptimizeResponse{OptimizeResponse: h.optimizeResponse(plan, h.engine, result)}
	resp.DurationMS = duration.Milliseconds()

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	if !dryRun {
		run, err := repository.SaveResult(ctx, h.store, day, result, duration)
		if err != nil {
			respondError(w, apperrors.From(err))
			return
		}
		resp.Run = run
		log.Info().Str("day", day).Str("run_id", run.ID.String()).Int("score", result.Score).Msg("优化结果已保存")
	}

	respondJSON(w, http.StatusOK, resp)
}

// ListRuns 列出某日优化记录
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repository.DefaultListFilter().WithDay(dayFrom(r.Context()))
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, apperrors.InvalidInput("limit", "应为 1-100 的整数"))
			return
		}
		filter = filter.WithLimit(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, apperrors.InvalidInput("offset", "应为非负整数"))
			return
		}
		filter = filter.WithOffset(n)
	}
	if v := q.Get("status"); v != "" {
		filter = filter.WithStatus(v)
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		respondError(w, apperrors.From(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"day":    filter.Day,
		"runs":   runs,
		"offset": filter.Offset,
		"limit":  filter.Limit,
	})
}

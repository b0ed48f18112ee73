package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Health 健康检查，任一依赖异常时返回 503
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Health(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status":       status,
		"service":      "orplan",
		"dependencies": deps,
	})
}

// Version 版本信息
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.build)
}

// Index API 根路由
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "手术间排班优化 API v1",
		"endpoints": map[string]interface{}{
			"plan": map[string]string{
				"optimize":      "POST /api/v1/plan/optimize",
				"score":         "POST /api/v1/plan/score",
				"validate":      "POST /api/v1/plan/validate",
				"recommend":     "POST /api/v1/plan/recommend",
				"evaluate_swap": "POST /api/v1/plan/evaluate-swap",
			},
			"qualify": "POST /api/v1/qualify",
			"stats": map[string]string{
				"coverage":     "POST /api/v1/stats/coverage",
				"satisfaction": "POST /api/v1/stats/satisfaction",
			},
			"config":      "GET /api/v1/config/engine",
			"constraints": "GET /api/v1/constraints/library",
			"days": map[string]string{
				"plan":     "GET /api/v1/days/{date}/plan",
				"optimize": "POST /api/v1/days/{date}/optimize",
				"runs":     "GET /api/v1/days/{date}/runs",
			},
			"jobs": "POST /api/v1/jobs",
		},
	})
}

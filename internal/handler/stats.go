package handler

import (
	"net/http"

	"github.com/paiban/orplan/pkg/stats"
)

// CoverageResponse 覆盖率响应
type CoverageResponse struct {
	Data   *stats.CoverageMetrics `json:"data"`
	Report string                 `json:"report,omitempty"`
}

// Coverage 手术间覆盖率分析，?report=true 时附带文本报告
func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
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

	analyzer := stats.NewCoverageAnalyzer(cfg.SpecialtyOverrides)
	result := analyzer.Analyze(req.Plan.Rooms, req.Plan.Assignments, req.Plan.Staff)

	resp := CoverageResponse{Data: result}
	if r.URL.Query().Get("report") == "true" {
		resp.Report = analyzer.GenerateCoverageReport(result)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Satisfaction 人员意愿满足情况分析
func (h *Handler) Satisfaction(w http.ResponseWriter, r *http.Request) {
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

	result := stats.NewFairnessAnalyzer(cfg.SpecialtyOverrides).Analyze(req.Plan.Rooms, req.Plan.Assignments, req.Plan.Staff)
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": result})
}

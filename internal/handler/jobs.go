package handler

import (
	"net/http"

	"github.com/paiban/orplan/internal/metrics"
	"github.com/paiban/orplan/internal/queue"
	apperrors "github.com/paiban/orplan/pkg/errors"
)

// SubmitJob 提交异步优化任务，结果发布到结果队列
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, apperrors.New(apperrors.CodeQueueUnavailable, "任务队列未启用"))
		return
	}

	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	job := queue.JobRequest{Plan: req.Plan}
	if len(req.Config) > 0 {
		cfg, appErr := h.engineFor(req.Config)
		if appErr != nil {
			respondError(w, appErr)
			return
		}
		job.Config = cfg
	}

	id, err := h.jobs.Submit(r.Context(), job)
	if err != nil {
		respondError(w, apperrors.From(err))
		return
	}
	metrics.RecordJob("submitted")

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": id,
		"status": "queued",
	})
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/orplan/internal/cache"
	"github.com/paiban/orplan/internal/config"
	"github.com/paiban/orplan/internal/constraints"
	"github.com/paiban/orplan/internal/queue"
	"github.com/paiban/orplan/internal/repository"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/rules"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

func samplePlan() *model.DayPlan {
	return &model.DayPlan{
		Date: "2026-03-02",
		Staff: []*model.Staff{
			{ID: "a", Name: "张三", Skills: map[string]model.Level{"UCH": model.LevelExpert}, IsLead: true},
			{ID: "b", Name: "李四", Skills: map[string]model.Level{"UCH": model.LevelJunior}},
			{ID: "c", Name: "王五", Skills: map[string]model.Level{"GCH": model.LevelExpert}},
		},
		Rooms: []*model.Room{
			{
				ID:                 "OP1",
				Name:               "OP 1",
				PrimaryDepartments: []string{"UCH"},
				Operations:         []model.Operation{{ID: "op-1", Department: "UCH", DurationMinutes: 90}},
			},
		},
	}
}

func newTestHandler(t *testing.T, deps Deps) *Handler {
	t.Helper()
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}
	h, err := NewHandler(deps)
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &body)
	return body.Code
}

func TestOptimize(t *testing.T) {
	h := newTestHandler(t, Deps{})

	rec := do(t, h, http.MethodPost, "/api/v1/plan/optimize", map[string]interface{}{"plan": samplePlan()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Assignments []model.Assignment `json:"assignments"`
		Alerts      []string           `json:"alerts"`
		Status      string             `json:"status"`
		Cached      bool               `json:"cached"`
		Coverage    struct {
			FillRate float64 `json:"fill_rate"`
		} `json:"coverage"`
		Breakdown []scoring.RoomBreakdown `json:"breakdown"`
	}
	decodeBody(t, rec, &resp)

	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, []string{"a", "b"}, resp.Assignments[0].StaffIDs)
	assert.Empty(t, resp.Alerts)
	assert.Equal(t, "converged", resp.Status)
	assert.False(t, resp.Cached)
	assert.Equal(t, 100.0, resp.Coverage.FillRate)
	require.Len(t, resp.Breakdown, 1)
	assert.Equal(t, "UCH", resp.Breakdown[0].Dominant)
}

func TestOptimize_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	h := newTestHandler(t, Deps{Cache: rc})

	body := map[string]interface{}{"plan": samplePlan()}

	var first, second struct {
		Score  int  `json:"score"`
		Cached bool `json:"cached"`
	}
	decodeBody(t, do(t, h, http.MethodPost, "/api/v1/plan/optimize", body), &first)
	decodeBody(t, do(t, h, http.MethodPost, "/api/v1/plan/optimize", body), &second)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Score, second.Score)

	var bypass struct {
		Cached bool `json:"cached"`
	}
	decodeBody(t, do(t, h, http.MethodPost, "/api/v1/plan/optimize",
		map[string]interface{}{"plan": samplePlan(), "no_cache": true}), &bypass)
	assert.False(t, bypass.Cached)
}

func TestOptimize_BadRequests(t *testing.T) {
	h := newTestHandler(t, Deps{})

	dup := samplePlan()
	dup.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a", "a"}}}

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   apperrors.Code
	}{
		{"非法JSON", `{"plan":`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"空请求体", nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"缺少排班", map[string]interface{}{}, http.StatusBadRequest, apperrors.CodeValidationFail},
		{"日期格式错误", map[string]interface{}{"plan": map[string]interface{}{"date": "03/02/2026"}}, http.StatusBadRequest, apperrors.CodeValidationFail},
		{"重复分配", map[string]interface{}{"plan": dup}, http.StatusConflict, apperrors.CodeDuplicateStaff},
		{"负权重", map[string]interface{}{"plan": samplePlan(), "config": map[string]interface{}{"weights": map[string]int{"pairing_bonus": -1}}}, http.StatusBadRequest, apperrors.CodeValidationFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/plan/optimize", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, string(tt.code), errorCode(t, rec))
		})
	}
}

func TestValidationMessageTranslated(t *testing.T) {
	h := newTestHandler(t, Deps{})

	rec := do(t, h, http.MethodPost, "/api/v1/qualify", map[string]interface{}{"plan": samplePlan(), "room_id": "OP1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Details string                 `json:"details"`
		Fields  map[string]interface{} `json:"fields"`
	}
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Details, "StaffID")
	assert.Contains(t, body.Details, "必填")
	assert.Len(t, body.Fields, 1)
}

func TestScore(t *testing.T) {
	h := newTestHandler(t, Deps{})
	plan := samplePlan()
	plan.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a", "c"}}}

	rec := do(t, h, http.MethodPost, "/api/v1/plan/score", map[string]interface{}{"plan": plan})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	decodeBody(t, rec, &resp)

	plan.Normalize()
	want := scoring.TotalScore(plan.Assignments, plan.Rooms, plan.Staff, model.DefaultEngineConfig(), nil)
	assert.Equal(t, want, resp.Score)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, want, resp.Rooms[0].Score)
}

func TestScore_ConfigOverlay(t *testing.T) {
	h := newTestHandler(t, Deps{})
	plan := samplePlan()
	plan.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a", "b"}}}

	var base, boosted ScoreResponse
	decodeBody(t, do(t, h, http.MethodPost, "/api/v1/plan/score", map[string]interface{}{"plan": plan}), &base)
	decodeBody(t, do(t, h, http.MethodPost, "/api/v1/plan/score", map[string]interface{}{
		"plan":   plan,
		"config": map[string]interface{}{"weights": map[string]int{"fully_staffed_bonus": model.DefaultWeights().FullyStaffedBonus + 1000}},
	}), &boosted)

	assert.Equal(t, base.Score+1000, boosted.Score)
}

func TestValidate(t *testing.T) {
	h := newTestHandler(t, Deps{})
	plan := samplePlan()
	plan.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"c"}}}

	rec := do(t, h, http.MethodPost, "/api/v1/plan/validate", map[string]interface{}{"plan": plan})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ValidateResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Valid)
	assert.Equal(t, 1, resp.Summary["unqualified"])
	assert.Equal(t, 1, resp.Summary["understaffed"])
}

func TestQualify(t *testing.T) {
	h := newTestHandler(t, Deps{})

	t.Run("无对应专科资质", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/qualify", map[string]interface{}{"plan": samplePlan(), "staff_id": "c", "room_id": "OP1"})
		require.Equal(t, http.StatusOK, rec.Code)
		var v rules.Verdict
		decodeBody(t, rec, &v)
		assert.False(t, v.Qualified)
		assert.Equal(t, rules.ReasonNoSkill, v.Reason)
	})

	t.Run("未知手术间", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/qualify", map[string]interface{}{"plan": samplePlan(), "staff_id": "a", "room_id": "OP9"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(apperrors.CodeUnknownRoom), errorCode(t, rec))
	})

	t.Run("未知人员", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/qualify", map[string]interface{}{"plan": samplePlan(), "staff_id": "zz", "room_id": "OP1"})
		assert.Equal(t, string(apperrors.CodeUnknownStaff), errorCode(t, rec))
	})
}

func TestRecommend(t *testing.T) {
	h := newTestHandler(t, Deps{})
	plan := samplePlan()
	plan.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a"}}}

	rec := do(t, h, http.MethodPost, "/api/v1/plan/recommend", map[string]interface{}{"plan": plan, "room_id": "OP1", "slot": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Recommendations []struct {
			StaffID   string `json:"staff_id"`
			Qualified bool   `json:"qualified"`
			Rank      int    `json:"rank"`
		} `json:"recommendations"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "b", resp.Recommendations[0].StaffID)
	assert.Equal(t, 1, resp.Recommendations[0].Rank)

	rec = do(t, h, http.MethodPost, "/api/v1/plan/recommend", map[string]interface{}{"plan": plan, "room_id": "OP1", "slot": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateSwap(t *testing.T) {
	h := newTestHandler(t, Deps{})
	plan := samplePlan()
	plan.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a"}}}

	rec := do(t, h, http.MethodPost, "/api/v1/plan/evaluate-swap", map[string]interface{}{
		"plan": plan, "room_id": "OP1", "slot": 1, "staff_in": "b",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Feasible bool   `json:"feasible"`
		Kind     string `json:"kind"`
		Delta    int    `json:"delta"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Feasible)
	assert.Equal(t, "fill", resp.Kind)
	assert.Greater(t, resp.Delta, 0)
}

func TestStats(t *testing.T) {
	h := newTestHandler(t, Deps{})
	plan := samplePlan()
	plan.Assignments = []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a"}}}

	rec := do(t, h, http.MethodPost, "/api/v1/stats/coverage?report=true", map[string]interface{}{"plan": plan})
	require.Equal(t, http.StatusOK, rec.Code)
	var cov CoverageResponse
	decodeBody(t, rec, &cov)
	assert.Equal(t, 50.0, cov.Data.FillRate)
	assert.Contains(t, cov.Report, "覆盖率分析报告")

	rec = do(t, h, http.MethodPost, "/api/v1/stats/satisfaction", map[string]interface{}{"plan": plan})
	require.Equal(t, http.StatusOK, rec.Code)
	var sat struct {
		Data struct {
			PlacedStaff int `json:"placed_staff"`
			BenchStaff  int `json:"bench_staff"`
		} `json:"data"`
	}
	decodeBody(t, rec, &sat)
	assert.Equal(t, 1, sat.Data.PlacedStaff)
	assert.Equal(t, 2, sat.Data.BenchStaff)
}

func TestEngineConfig(t *testing.T) {
	engine := model.DefaultEngineConfig()
	engine.Rules = []model.SpecialRule{{ID: "davinci", Trigger: "DA_VINCI", RequiredSkill: "DA_VINCI", MinLevel: model.LevelExpert, Enabled: true}}
	h := newTestHandler(t, Deps{Engine: engine})

	rec := do(t, h, http.MethodGet, "/api/v1/config/engine", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.EngineConfig
	decodeBody(t, rec, &got)
	assert.Equal(t, engine.Weights, got.Weights)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "davinci", got.Rules[0].ID)
}

func TestConstraintLibrary(t *testing.T) {
	engine := model.DefaultEngineConfig()
	engine.Weights.FullyStaffedBonus = 99
	engine.Rules = []model.SpecialRule{
		{ID: "davinci", Trigger: "DA_VINCI", RequiredSkill: "DA_VINCI", MinLevel: model.LevelExpert, Enabled: true},
		{ID: "laser", Trigger: "LASER", RequiredSkill: "LASER", MinLevel: model.LevelJunior},
	}
	h := newTestHandler(t, Deps{Engine: engine})

	rec := do(t, h, http.MethodGet, "/api/v1/constraints/library", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body constraints.LibraryResponse
	decodeBody(t, rec, &body)
	assert.Len(t, body.Rules, 2)
	assert.EqualValues(t, 1, body.RuleSummary["enabled"])
	assert.EqualValues(t, 1, body.RuleSummary["disabled"])
	found := false
	for _, c := range body.Library {
		if c.Name == "fully_staffed_bonus" {
			found = true
			assert.Equal(t, "99", c.Params[0].Current)
		}
	}
	assert.True(t, found)

	rec = do(t, h, http.MethodGet, "/api/v1/constraints/library?group=category", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped struct {
		Library map[string][]constraints.ConstraintDefinition `json:"library"`
	}
	decodeBody(t, rec, &grouped)
	assert.NotEmpty(t, grouped.Library["带台"])
}

// fakeStore 内存排班仓储
type fakeStore struct {
	plan  *model.DayPlan
	saved map[string][]model.Assignment
	runs  []*model.OptimizationRun
	err   error
}

func (s *fakeStore) ListStaff(context.Context) ([]*model.Staff, error) { return s.plan.Staff, s.err }
func (s *fakeStore) ListRooms(context.Context, string) ([]*model.Room, error) {
	return s.plan.Rooms, s.err
}
func (s *fakeStore) ListPairings(context.Context) ([]model.StaffPairing, error) {
	return s.plan.Pairings, s.err
}
func (s *fakeStore) GetAssignments(context.Context, string) ([]model.Assignment, error) {
	return s.plan.Assignments, s.err
}

func (s *fakeStore) LoadDayPlan(_ context.Context, day string) (*model.DayPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	plan := *s.plan
	plan.Date = day
	plan.Normalize()
	return &plan, nil
}

func (s *fakeStore) SaveAssignments(_ context.Context, day string, assignments []model.Assignment) error {
	if s.saved == nil {
		s.saved = make(map[string][]model.Assignment)
	}
	s.saved[day] = assignments
	return nil
}

func (s *fakeStore) SaveRun(_ context.Context, run *model.OptimizationRun) error {
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeStore) ListRuns(_ context.Context, filter repository.ListFilter) ([]*model.OptimizationRun, error) {
	var out []*model.OptimizationRun
	for _, r := range s.runs {
		if filter.Day == "" || r.Day == filter.Day {
			out = append(out, r)
		}
	}
	return out, s.err
}

func TestDays(t *testing.T) {
	t.Run("数据库未启用", func(t *testing.T) {
		h := newTestHandler(t, Deps{})
		rec := do(t, h, http.MethodPost, "/api/v1/days/2026-03-02/optimize", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		h := newTestHandler(t, Deps{Store: &fakeStore{plan: samplePlan()}})
		rec := do(t, h, http.MethodPost, "/api/v1/days/2026-3-2/optimize", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("优化并保存", func(t *testing.T) {
		store := &fakeStore{plan: samplePlan()}
		h := newTestHandler(t, Deps{Store: store})

		rec := do(t, h, http.MethodPost, "/api/v1/days/2026-03-02/optimize", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Score int                    `json:"score"`
			Run   *model.OptimizationRun `json:"run"`
		}
		decodeBody(t, rec, &resp)
		require.NotNil(t, resp.Run)
		assert.Equal(t, "2026-03-02", resp.Run.Day)
		assert.Equal(t, resp.Score, resp.Run.FinalScore)
		assert.Equal(t, []string{"a", "b"}, store.saved["2026-03-02"][0].StaffIDs)
		require.Len(t, store.runs, 1)

		rec = do(t, h, http.MethodGet, "/api/v1/days/2026-03-02/runs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var runs struct {
			Runs []*model.OptimizationRun `json:"runs"`
		}
		decodeBody(t, rec, &runs)
		assert.Len(t, runs.Runs, 1)
	})

	t.Run("试运行不保存", func(t *testing.T) {
		store := &fakeStore{plan: samplePlan()}
		h := newTestHandler(t, Deps{Store: store})

		rec := do(t, h, http.MethodPost, "/api/v1/days/2026-03-02/optimize?dry_run=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, store.saved)
		assert.Empty(t, store.runs)
	})

	t.Run("数据库错误", func(t *testing.T) {
		store := &fakeStore{plan: samplePlan(), err: apperrors.Wrap(errors.New("connection refused"), apperrors.CodeDatabaseError, "查询失败")}
		h := newTestHandler(t, Deps{Store: store})

		rec := do(t, h, http.MethodGet, "/api/v1/days/2026-03-02/plan", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, string(apperrors.CodeDatabaseError), errorCode(t, rec))
	})

	t.Run("分页参数错误", func(t *testing.T) {
		h := newTestHandler(t, Deps{Store: &fakeStore{plan: samplePlan()}})
		rec := do(t, h, http.MethodGet, "/api/v1/days/2026-03-02/runs?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type fakeJobs struct {
	jobs []queue.JobRequest
	err  error
}

func (f *fakeJobs) Submit(_ context.Context, job queue.JobRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return "job-1", nil
}

func TestSubmitJob(t *testing.T) {
	t.Run("队列未启用", func(t *testing.T) {
		h := newTestHandler(t, Deps{})
		rec := do(t, h, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"plan": samplePlan()})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("提交成功", func(t *testing.T) {
		jobs := &fakeJobs{}
		h := newTestHandler(t, Deps{Jobs: jobs})

		rec := do(t, h, http.MethodPost, "/api/v1/jobs", map[string]interface{}{
			"plan":   samplePlan(),
			"config": map[string]interface{}{"max_iterations": 10},
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "job-1", resp["job_id"])
		require.Len(t, jobs.jobs, 1)
		require.NotNil(t, jobs.jobs[0].Config)
		assert.Equal(t, 10, jobs.jobs[0].Config.MaxIterations)
		assert.Equal(t, model.DefaultWeights(), jobs.jobs[0].Config.Weights)
	})

	t.Run("发布失败", func(t *testing.T) {
		h := newTestHandler(t, Deps{Jobs: &fakeJobs{err: apperrors.New(apperrors.CodeQueueUnavailable, "发布任务失败")}})
		rec := do(t, h, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"plan": samplePlan()})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

type checkFunc func(context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	down := checkFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	h := newTestHandler(t, Deps{Checks: map[string]HealthChecker{"redis": ok}})
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)

	h = newTestHandler(t, Deps{Checks: map[string]HealthChecker{"redis": ok, "postgres": down}})
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Dependencies["redis"])
}

func TestVersionAndMetrics(t *testing.T) {
	h := newTestHandler(t, Deps{Build: BuildInfo{Version: "1.2.3"}})

	var v BuildInfo
	decodeBody(t, do(t, h, http.MethodGet, "/version", nil), &v)
	assert.Equal(t, "1.2.3", v.Version)

	do(t, h, http.MethodPost, "/api/v1/plan/optimize", map[string]interface{}{"plan": samplePlan()})
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orplan_http_requests_total{method="POST",path="/api/v1/plan/optimize",status="200"}`)
	assert.Contains(t, rec.Body.String(), "orplan_optimizations_total")
}

func TestMiddleware(t *testing.T) {
	t.Run("请求ID", func(t *testing.T) {
		h := newTestHandler(t, Deps{})
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

		rec = do(t, h, http.MethodGet, "/health", nil)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("CORS预检", func(t *testing.T) {
		cfg := &config.Config{API: config.APIConfig{CORSEnabled: true, CORSOrigins: []string{"https://or.example.org"}}}
		h := newTestHandler(t, Deps{Config: cfg})

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/plan/optimize", nil)
		req.Header.Set("Origin", "https://or.example.org")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://or.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("限流", func(t *testing.T) {
		h := newTestHandler(t, Deps{Config: &config.Config{API: config.APIConfig{RateLimit: 1}}})
		now := time.Now()
		h.limiter.now = func() time.Time { return now }
		h.limiter.lastRefill = now

		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
		rec := do(t, h, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))

		now = now.Add(time.Second)
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
	})
}

func TestAllowedOrigin(t *testing.T) {
	assert.Equal(t, "*", allowedOrigin(nil, "https://a"))
	assert.Equal(t, "*", allowedOrigin([]string{"*"}, ""))
	assert.Equal(t, "https://a", allowedOrigin([]string{" https://a "}, "https://a"))
	assert.Equal(t, "", allowedOrigin([]string{"https://a"}, "https://b"))
}

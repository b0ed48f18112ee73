// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/paiban/orplan/internal/config"
	"github.com/paiban/orplan/internal/metrics"
	"github.com/paiban/orplan/internal/queue"
	"github.com/paiban/orplan/internal/repository"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

// ResultCache 优化结果缓存
type ResultCache interface {
	Get(ctx context.Context, key string) (*optimizer.Result, bool, error)
	Set(ctx context.Context, key string, result *optimizer.Result) error
}

// JobSubmitter 异步任务发布
type JobSubmitter interface {
	Submit(ctx context.Context, job queue.JobRequest) (string, error)
}

// HealthChecker 依赖健康检查
type HealthChecker interface {
	Health(ctx context.Context) error
}

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Deps 处理器依赖，可选依赖为 nil 时对应接口不可用
type Deps struct {
	Config *config.Config
	Engine *model.EngineConfig
	Store  repository.PlanStore
	Cache  ResultCache
	Jobs   JobSubmitter
	Checks map[string]HealthChecker
	Build  BuildInfo
}

// Handler API处理器
type Handler struct {
	validate   *validator.Validate
	translator ut.Translator
	cfg        *config.Config
	engine     *model.EngineConfig
	store      repository.PlanStore
	cache      ResultCache
	jobs       JobSubmitter
	checks     map[string]HealthChecker
	build      BuildInfo
	limiter    *RateLimiter

	Mux *chi.Mux
}

// NewHandler 创建处理器并注册路由
func NewHandler(deps Deps) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	engine := deps.Engine
	if engine == nil {
		engine = model.DefaultEngineConfig()
	}

	h := &Handler{
		validate:   validate,
		translator: trans,
		cfg:        cfg,
		engine:     engine,
		store:      deps.Store,
		cache:      deps.Cache,
		jobs:       deps.Jobs,
		checks:     deps.Checks,
		build:      deps.Build,
		Mux:        chi.NewRouter(),
	}
	if cfg.API.RateLimit > 0 {
		h.limiter = NewRateLimiter(float64(cfg.API.RateLimit))
	}
	h.registerRoutes()
	return h, nil
}

// ServeHTTP 实现 http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Mux.ServeHTTP(w, r)
}

// 中间件执行顺序：requestID -> recoverer -> rateLimit -> cors -> logging -> handler
func (h *Handler) registerRoutes() {
	h.Mux.Use(requestID)
	h.Mux.Use(h.recoverer)
	if h.limiter != nil {
		h.Mux.Use(h.rateLimit)
	}
	if h.cfg.API.CORSEnabled {
		h.Mux.Use(h.cors)
	}
	h.Mux.Use(logging)
	if h.cfg.API.Timeout > 0 {
		h.Mux.Use(middleware.Timeout(h.cfg.API.Timeout))
	}

	h.Mux.Get("/health", h.Health)
	h.Mux.Get("/version", h.Version)
	metricsPath := h.cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	h.Mux.Method(http.MethodGet, metricsPath, metrics.Handler())

	h.Mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.Index)

		r.Route("/plan", func(r chi.Router) {
			r.Post("/optimize", h.Optimize)
			r.Post("/score", h.Score)
			r.Post("/validate", h.Validate)
			r.Post("/recommend", h.Recommend)
			r.Post("/evaluate-swap", h.EvaluateSwap)
		})
		r.Post("/qualify", h.Qualify)

		r.Route("/stats", func(r chi.Router) {
			r.Post("/coverage", h.Coverage)
			r.Post("/satisfaction", h.Satisfaction)
		})

		r.Get("/config/engine", h.EngineConfig)
		r.Get("/constraints/library", h.ConstraintLibrary)

		r.Route("/days/{date}", func(r chi.Router) {
			r.Use(h.requireStore)
			r.Use(dayParam)
			r.Get("/plan", h.GetDayPlan)
			r.Post("/optimize", h.OptimizeDay)
			r.Get("/runs", h.ListRuns)
		})

		r.Post("/jobs", h.SubmitJob)
	})
}

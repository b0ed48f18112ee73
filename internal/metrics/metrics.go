// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

const labelSep = "\xff"

var (
	registry *Registry
	once     sync.Once
)

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
		registerDefaults(registry)
	})
	return registry
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

func registerDefaults(r *Registry) {
	r.NewCounter("orplan_http_requests_total", "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram("orplan_http_request_duration_seconds", "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0})

	// 优化运行
	r.NewCounter("orplan_optimizations_total", "优化运行次数", []string{"source", "status"})
	r.NewHistogram("orplan_optimization_duration_seconds", "优化耗时",
		[]string{"source"},
		[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0})
	r.NewHistogram("orplan_optimization_rounds", "优化轮数",
		[]string{"status"},
		[]float64{1, 2, 5, 10, 20, 30, 40, 50})
	r.NewCounter("orplan_moves_total", "已接受的改进动作数", []string{"kind"})
	r.NewCounter("orplan_alerts_total", "告警数", []string{"level"})
	r.NewGauge("orplan_plan_score", "最近一次优化的总分", []string{"date"})

	r.NewCounter("orplan_cache_requests_total", "结果缓存访问次数", []string{"result"})
	r.NewCounter("orplan_jobs_total", "异步任务数", []string{"stage"})
	r.NewGauge("orplan_plan_fill_rate", "手术间岗位填充率", []string{"date"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 只计入第一个满足的桶，输出时累加
	idx := len(h.Buckets)
	for i, bucket := range h.Buckets {
		if value <= bucket {
			idx = i
			break
		}
	}
	h.counts[key][idx]++
	h.sums[key] += value
}

// Count 返回观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, c := range h.counts[labelKey(labelValues)] {
		total += c
	}
	return total
}

func labelKey(labels []string) string {
	return strings.Join(labels, labelSep)
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return GetRegistry().Handler()
}

// Handler 返回当前注册表的HTTP处理器
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}

// Render 以文本格式输出所有指标，按名称与标签排序
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder

	for _, name := range sortedNames(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedNames(c.values) {
			fmt.Fprintf(&b, "%s%s %s\n", c.Name, braced(formatLabels(c.Labels, key)), formatFloat(c.values[key]))
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedNames(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedNames(g.values) {
			fmt.Fprintf(&b, "%s%s %s\n", g.Name, braced(formatLabels(g.Labels, key)), formatFloat(g.values[key]))
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedNames(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		for _, key := range sortedNames(h.counts) {
			counts := h.counts[key]
			labels := formatLabels(h.Labels, key)
			prefix := ""
			if labels != "" {
				prefix = labels + ","
			}
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				fmt.Fprintf(&b, "%s_bucket{%sle=\"%s\"} %d\n", h.Name, prefix, formatFloat(bucket), cumulative)
			}
			cumulative += counts[len(h.Buckets)]
			fmt.Fprintf(&b, "%s_bucket{%sle=\"+Inf\"} %d\n", h.Name, prefix, cumulative)
			fmt.Fprintf(&b, "%s_sum%s %s\n", h.Name, braced(labels), formatFloat(h.sums[key]))
			fmt.Fprintf(&b, "%s_count%s %d\n", h.Name, braced(labels), cumulative)
		}
		h.mu.RUnlock()
	}

	return b.String()
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	vals := strings.Split(key, labelSep)
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func braced(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// RecordRequest 记录请求指标
func RecordRequest(method, path string, status int, duration time.Duration) {
	r := GetRegistry()
	r.GetCounter("orplan_http_requests_total").Inc(method, path, strconv.Itoa(status))
	r.GetHistogram("orplan_http_request_duration_seconds").Observe(duration.Seconds(), method, path)
}

// RunSummary 一次优化运行的指标摘要
type RunSummary struct {
	Source   string // http / worker / cli
	Date     string
	Status   string
	Rounds   int
	Score    int
	Moves    map[string]int
	Alerts   []string
	Duration time.Duration
}

// Summarize 由优化结果生成指标摘要
func Summarize(source, date string, res *optimizer.Result, duration time.Duration) RunSummary {
	moves := make(map[string]int)
	for _, m := range res.Moves {
		moves[string(m.Kind)]++
	}
	return RunSummary{
		Source:   source,
		Date:     date,
		Status:   string(res.Status),
		Rounds:   res.Rounds,
		Score:    res.Score,
		Moves:    moves,
		Alerts:   res.Alerts,
		Duration: duration,
	}
}

// RecordOptimization 记录一次优化运行
func RecordOptimization(s RunSummary) {
	r := GetRegistry()
	r.GetCounter("orplan_optimizations_total").Inc(s.Source, s.Status)
	r.GetHistogram("orplan_optimization_duration_seconds").Observe(s.Duration.Seconds(), s.Source)
	r.GetHistogram("orplan_optimization_rounds").Observe(float64(s.Rounds), s.Status)

	moves := r.GetCounter("orplan_moves_total")
	for kind, n := range s.Moves {
		moves.Add(float64(n), kind)
	}

	alerts := r.GetCounter("orplan_alerts_total")
	for _, a := range s.Alerts {
		level, _, _ := strings.Cut(a, ":")
		alerts.Inc(level)
	}

	if s.Date != "" {
		r.GetGauge("orplan_plan_score").Set(float64(s.Score), s.Date)
	}
}

// RecordCache 记录缓存命中情况，result 为 hit / miss / error
func RecordCache(result string) {
	GetRegistry().GetCounter("orplan_cache_requests_total").Inc(result)
}

// RecordJob 记录异步任务阶段：submitted / completed / failed / rejected
func RecordJob(stage string) {
	GetRegistry().GetCounter("orplan_jobs_total").Inc(stage)
}

// SetFillRate 设置某日岗位填充率
func SetFillRate(date string, rate float64) {
	GetRegistry().GetGauge("orplan_plan_fill_rate").Set(rate, date)
}

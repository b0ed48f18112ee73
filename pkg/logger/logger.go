// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	mu     sync.RWMutex
	logger zerolog.Logger
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，仅首次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		output := openOutput(cfg)
		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		mu.Lock()
		logger = zerolog.New(output).With().Timestamp().Str("service", "orplan").Logger()
		mu.Unlock()
	})
}

// SetOutput 替换输出目标（测试与命令行使用）
func SetOutput(w io.Writer) {
	once.Do(func() {})
	mu.Lock()
	logger = zerolog.New(w).With().Timestamp().Str("service", "orplan").Logger()
	mu.Unlock()
}

func openOutput(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		if cfg.FilePath == "" {
			return os.Stdout
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器，未初始化时使用默认配置
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

type ctxKey string

// RequestIDKey 请求ID在 context 中的键
const RequestIDKey ctxKey = "request_id"

// WithRequestID 将请求ID写入 context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID 从 context 读取请求ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	if reqID := RequestID(ctx); reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// OptimizerLogger 优化器专用日志器
type OptimizerLogger struct {
	base *zerolog.Logger
}

// NewOptimizerLogger 创建优化器日志器
func NewOptimizerLogger() *OptimizerLogger {
	l := Get().With().Str("component", "optimizer").Logger()
	return &OptimizerLogger{base: &l}
}

// StartRun 记录优化开始
func (l *OptimizerLogger) StartRun(runID string, rooms, staff, bench, score int) {
	l.base.Info().
		Str("run_id", runID).
		Int("rooms", rooms).
		Int("staff", staff).
		Int("bench", bench).
		Int("initial_score", score).
		Msg("开始优化手术间排班")
}

// MoveAccepted 记录接受的改进移动
func (l *OptimizerLogger) MoveAccepted(runID string, round int, kind, roomID string, slot int, in, out string, score int) {
	l.base.Debug().
		Str("run_id", runID).
		Int("round", round).
		Str("move", kind).
		Str("room_id", roomID).
		Int("slot", slot).
		Str("staff_in", in).
		Str("staff_out", out).
		Int("score", score).
		Msg("接受改进")
}

// Unqualified 记录资质不符
func (l *OptimizerLogger) Unqualified(staffID, roomID, reason string) {
	l.base.Debug().
		Str("staff_id", staffID).
		Str("room_id", roomID).
		Str("reason", reason).
		Msg("资质不符")
}

// RunComplete 记录优化完成
func (l *OptimizerLogger) RunComplete(runID, status string, rounds, initial, final, alerts int, duration time.Duration) {
	l.base.Info().
		Str("run_id", runID).
		Str("status", status).
		Int("rounds", rounds).
		Int("initial_score", initial).
		Int("final_score", final).
		Int("alerts", alerts).
		Dur("duration", duration).
		Msg("优化完成")
}

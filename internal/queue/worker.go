package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/paiban/orplan/internal/config"
	"github.com/paiban/orplan/internal/metrics"
	"github.com/paiban/orplan/internal/repository"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

// ErrMalformedJob 任务消息无法解析
var ErrMalformedJob = errors.New("malformed optimization job")

// ResultSink 优化完成后的回调，例如写入数据库
type ResultSink func(ctx context.Context, job *JobRequest, result *optimizer.Result, duration time.Duration) error

// Consumer 消费所需的通道接口，由 *amqp.Channel 实现
type Consumer interface {
	Channel
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker 优化任务消费者
type Worker struct {
	ch       Consumer
	cfg      *config.RabbitMQConfig
	defaults *model.EngineConfig
	sink     ResultSink
}

// NewWorker 创建消费者，defaults 用于未携带配置的任务
func NewWorker(ch Consumer, cfg *config.RabbitMQConfig, defaults *model.EngineConfig) *Worker {
	if defaults == nil {
		defaults = model.DefaultEngineConfig()
	}
	return &Worker{ch: ch, cfg: cfg, defaults: defaults}
}

// WithSink 设置结果回调
func (w *Worker) WithSink(sink ResultSink) *Worker {
	w.sink = sink
	return w
}

// StoreSink 将优化结果写回排班仓储，任务缺少日期时无法保存
func StoreSink(store repository.PlanStore) ResultSink {
	return func(ctx context.Context, job *JobRequest, result *optimizer.Result, duration time.Duration) error {
		day := planDate(job.Plan)
		if day == "" {
			return apperrors.InvalidInput("plan.date", "缺少排班日期，无法保存结果")
		}
		run, err := repository.SaveResult(ctx, store, day, result, duration)
		if err != nil {
			return err
		}
		logger.Info().Str("job_id", job.JobID).Str("day", day).Str("run_id", run.ID.String()).Msg("任务结果已保存")
		return nil
	}
}

// Run 持续消费任务直到 ctx 取消或通道关闭
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.Prefetch > 0 {
		if err := w.ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
			return apperrors.Wrap(err, apperrors.CodeQueueUnavailable, "设置预取数量失败")
		}
	}

	msgs, err := w.ch.Consume(w.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeQueueUnavailable, "注册消费者失败")
	}

	logger.Info().Str("queue", w.cfg.Queue).Int("prefetch", w.cfg.Prefetch).Msg("开始消费优化任务")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("停止消费优化任务")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return apperrors.New(apperrors.CodeQueueUnavailable, "消息通道已关闭")
			}
			w.Handle(ctx, msg)
		}
	}
}

// Handle 处理单条消息
// 消息无法解析时丢弃不重试，其余情况回复结果后确认
func (w *Worker) Handle(ctx context.Context, msg amqp.Delivery) {
	start := time.Now()
	job, result, err := w.Process(msg.Body)
	if err != nil {
		logger.Warn().Err(err).Str("message_id", msg.MessageId).Msg("丢弃无法解析的任务")
		metrics.RecordJob("rejected")
		msg.Nack(false, false)
		return
	}

	reply := JobResult{
		JobID:      job.JobID,
		Date:       planDate(job.Plan),
		Result:     result,
		DurationMS: time.Since(start).Milliseconds(),
	}
	metrics.RecordOptimization(metrics.Summarize("worker", reply.Date, result, time.Since(start)))
	if w.sink != nil {
		if err := w.sink(ctx, job, result, time.Since(start)); err != nil {
			logger.Error().Err(err).Str("job_id", job.JobID).Msg("保存优化结果失败")
			reply.Error = err.Error()
		}
	}
	if reply.Error != "" {
		metrics.RecordJob("failed")
	} else {
		metrics.RecordJob("completed")
	}

	if err := w.reply(ctx, msg, reply); err != nil {
		// 结果未送达则重新入队
		logger.Error().Err(err).Str("job_id", job.JobID).Msg("回复优化结果失败")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)

	logger.Info().
		Str("job_id", job.JobID).
		Str("date", reply.Date).
		Int64("duration_ms", reply.DurationMS).
		Bool("failed", reply.Error != "").
		Msg("优化任务完成")
}

// Process 解析任务并运行优化，仅在消息无法解析时返回 ErrMalformedJob
// 任务携带的配置按字段叠加到 defaults 上，校验失败同样视为无法解析
func (w *Worker) Process(body []byte) (*JobRequest, *optimizer.Result, error) {
	var job JobRequest
	if err := json.Unmarshal(body, &job); err != nil {
		return &job, nil, errors.Join(ErrMalformedJob, err)
	}
	if job.Plan == nil {
		return &job, nil, errors.Join(ErrMalformedJob, apperrors.InvalidInput("plan", "缺少排班数据"))
	}

	var raw struct {
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return &job, nil, errors.Join(ErrMalformedJob, err)
	}
	cfg, err := config.OverlayEngineConfig(w.defaults, raw.Config)
	if err != nil {
		return &job, nil, errors.Join(ErrMalformedJob, err)
	}
	job.Config = cfg

	job.Plan.Normalize()
	return &job, optimizer.Optimize(job.Plan, cfg), nil
}

func (w *Worker) reply(ctx context.Context, msg amqp.Delivery, reply JobResult) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return err
	}

	key := msg.ReplyTo
	if key == "" {
		key = w.cfg.ResultQueue
	}

	timeout := w.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return w.ch.PublishWithContext(ctx, "", key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: reply.JobID,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

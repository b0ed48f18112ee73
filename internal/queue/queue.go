// Package queue 提供基于 RabbitMQ 的异步优化任务
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/paiban/orplan/internal/config"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

// JobRequest 异步优化任务
type JobRequest struct {
	JobID  string              `json:"job_id"`
	Plan   *model.DayPlan      `json:"plan" validate:"required"`
	Config *model.EngineConfig `json:"config,omitempty"`
}

// JobResult 异步优化结果
type JobResult struct {
	JobID      string            `json:"job_id"`
	Date       string            `json:"date,omitempty"`
	Result     *optimizer.Result `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

// Channel 发布所需的通道接口，由 *amqp.Channel 实现
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Conn RabbitMQ 连接与通道
type Conn struct {
	conn *amqp.Connection
	*amqp.Channel
}

// Dial 连接 RabbitMQ 并声明任务队列与结果队列
func Dial(cfg *config.RabbitMQConfig) (*Conn, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeQueueUnavailable, "无法连接到 RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeQueueUnavailable, "无法创建通道")
	}

	for _, name := range []string{cfg.Queue, cfg.ResultQueue} {
		// 持久化、不自动删除、非独占
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeQueueUnavailable, fmt.Sprintf("无法声明队列 %s", name))
		}
	}

	logger.Info().Str("queue", cfg.Queue).Str("result_queue", cfg.ResultQueue).Msg("RabbitMQ 连接成功")
	return &Conn{conn: conn, Channel: ch}, nil
}

// Health 连接或通道已关闭时返回错误
func (c *Conn) Health(ctx context.Context) error {
	if c.conn.IsClosed() || c.Channel.IsClosed() {
		return apperrors.New(apperrors.CodeQueueUnavailable, "RabbitMQ 连接已关闭")
	}
	return nil
}

// Close 关闭通道与连接
func (c *Conn) Close() error {
	c.Channel.Close()
	return c.conn.Close()
}

// Publisher 任务发布者
type Publisher struct {
	ch      Channel
	queue   string
	replyTo string
	timeout time.Duration
}

// NewPublisher 创建任务发布者
func NewPublisher(ch Channel, cfg *config.RabbitMQConfig) *Publisher {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{ch: ch, queue: cfg.Queue, replyTo: cfg.ResultQueue, timeout: timeout}
}

// Submit 发布优化任务，返回任务ID
func (p *Publisher) Submit(ctx context.Context, job JobRequest) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInvalidInput, "任务序列化失败")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: job.JobID,
		MessageId:     job.JobID,
		ReplyTo:       p.replyTo,
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeQueueUnavailable, "发布任务失败")
	}

	logger.Info().Str("job_id", job.JobID).Str("date", planDate(job.Plan)).Msg("优化任务已提交")
	return job.JobID, nil
}

func planDate(p *model.DayPlan) string {
	if p == nil {
		return ""
	}
	return p.Date
}

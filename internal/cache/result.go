// Package cache 提供优化结果缓存
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paiban/orplan/internal/config"
	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

const keyPrefix = "orplan:result:"

// ResultCache 基于 Redis 的优化结果缓存，键由排班输入与引擎配置哈希得到
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New 根据配置创建缓存并测试连接
func New(cfg *config.RedisConfig) (*ResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "Redis 连接失败")
	}

	logger.Info().Str("addr", cfg.Addr()).Dur("ttl", cfg.TTL).Msg("结果缓存已启用")
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient 使用已有客户端创建缓存
func NewWithClient(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResultCache{client: client, ttl: ttl}
}

// Key 计算排班输入与引擎配置的缓存键
func Key(plan *model.DayPlan, cfg *model.EngineConfig) (string, error) {
	h := fnv.New64a()
	for _, v := range []interface{}{plan, cfg} {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("序列化缓存键失败: %w", err)
		}
		h.Write(data)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s%016x", keyPrefix, h.Sum64()), nil
}

// Get 读取缓存，未命中返回 (nil, false, nil)
func (c *ResultCache) Get(ctx context.Context, key string) (*optimizer.Result, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "读取缓存失败")
	}

	var result optimizer.Result
	if err := json.Unmarshal(data, &result); err != nil {
		// 损坏的缓存视为未命中
		logger.Warn().Str("key", key).Err(err).Msg("缓存内容无法解析")
		return nil, false, nil
	}
	return &result, true, nil
}

// Set 写入缓存
func (c *ResultCache) Set(ctx context.Context, key string, result *optimizer.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "序列化结果失败")
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "写入缓存失败")
	}
	return nil
}

// Health 健康检查
func (c *ResultCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭连接
func (c *ResultCache) Close() error {
	return c.client.Close()
}

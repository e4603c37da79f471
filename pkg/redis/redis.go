package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"exam-duty/config"
)

// Client Redis 客户端封装
// 用于分配范围租约（同一学年/考试类型/考试对象同时只允许一次分配运行）与写操作限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 范围租约 ──

const leasePrefix = "allocation:lease:"

var (
	// ErrLeaseHeld 租约已被其他运行持有
	ErrLeaseHeld = errors.New("该考试范围正在分配中，请稍后重试")
	// ErrLeaseLost 续期时租约已过期或已被他人获取
	ErrLeaseLost = errors.New("范围租约已丢失")
)

// releaseScript 仅当值与令牌一致时删除，避免误删他人续上的租约
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript 仅当值与令牌一致时重设过期时间
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// LeaseKey 范围租约键
func LeaseKey(academicYear, examType, examYear string) string {
	return leasePrefix + academicYear + ":" + examType + ":" + examYear
}

// AcquireLease 以 SET NX PX 获取租约，返回持有令牌
func (c *Client) AcquireLease(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("获取租约失败: %w", err)
	}
	if !ok {
		return "", ErrLeaseHeld
	}
	return token, nil
}

// ExtendLease 将仍由 token 持有的租约过期时间重置为 ttl，否则返回 ErrLeaseLost
func (c *Client) ExtendLease(ctx context.Context, key, token string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, c.rdb, []string{key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("续期租约失败: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// ReleaseLease 释放租约；令牌不匹配（已过期被他人获取）时静默忽略
func (c *Client) ReleaseLease(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, c.rdb, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("释放租约失败: %w", err)
	}
	if n == 0 {
		c.logger.Warn("租约已失效，未执行释放", zap.String("key", key))
	}
	return nil
}

// ── 写操作限流 ──

const rateLimitPrefix = "rate_limit:"

// allowScript 计数键首次创建时设置过期时间，窗口结束后自动清零
var allowScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Allow 固定窗口计数：窗口内第 limit+1 次起返回 false
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := allowScript.Run(ctx, c.rdb, []string{rateLimitPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("限流计数失败: %w", err)
	}
	return n <= int64(limit), nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

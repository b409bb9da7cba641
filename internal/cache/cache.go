// 包 cache：基于 Redis 的边界图发布与查询结果缓存
package cache

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"
	"tzchains/internal/logger"
	"tzchains/internal/topology"

	"github.com/redis/go-redis/v9"
)

// Fingerprint 返回文档字节的 FNV64a 十六进制摘要，用作缓存键的版本段
func Fingerprint(doc []byte) string {
	h := fnv.New64a()
	h.Write(doc)
	return strconv.FormatUint(h.Sum64(), 16)
}

// 文档注释：发布边界图文档
// 背景：文档整体写入 key；概要写入 key+":meta" 哈希，供其他服务判断是否需要重新拉取。
// 约束：不设过期；rc 为 nil 时直接返回
func Publish(ctx context.Context, rc *redis.Client, key string, doc []byte, st topology.Stats) error {
	if rc == nil {
		return nil
	}
	pipe := rc.TxPipeline()
	pipe.Set(ctx, key, doc, 0)
	pipe.HSet(ctx, key+":meta",
		"fingerprint", Fingerprint(doc),
		"zones", st.Zones,
		"chains", st.Chains,
		"points", st.Points,
		"published_at", time.Now().UTC().Format(time.RFC3339),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	logger.L().Info("redis_published", "key", key, "bytes", len(doc))
	return nil
}

// Fetch 读取已发布的文档；键不存在时返回 redis.Nil
func Fetch(ctx context.Context, rc *redis.Client, key string) ([]byte, error) {
	return rc.Get(ctx, key).Bytes()
}

// ZoneCache：查询结果缓存，值为序列化后的响应
type ZoneCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, val string)
}

// RedisCache：ZoneCache 的 Redis 实现；读写错误只记录，不影响查询
type RedisCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache：prefix 一般带上文档指纹，拓扑变化后旧结果自然失效
func NewRedisCache(rc *redis.Client, prefix string, ttlSeconds int) *RedisCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{rc: rc, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	s, err := c.rc.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("redis_get_error", "key", key, "err", err)
		}
		return "", false
	}
	return s, true
}

func (c *RedisCache) Set(ctx context.Context, key, val string) {
	if err := c.rc.Set(ctx, c.prefix+key, val, c.ttl).Err(); err != nil {
		logger.L().Debug("redis_set_error", "key", key, "err", err)
	}
}

// CoordKey 使用完整精度，避免边界附近的取整误差
func CoordKey(lat, lon float64) string {
	return "c:" + strconv.FormatFloat(lat, 'g', -1, 64) + ":" + strconv.FormatFloat(lon, 'g', -1, 64)
}

func IPKey(ip string) string { return "ip:" + ip }

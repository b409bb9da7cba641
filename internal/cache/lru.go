package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// 文档注释：进程内 LRU 缓存（ZoneCache 的本地实现）
// 背景：未配置 Redis 时查询服务用它缓存热点坐标与 IP 的结果；条目带 TTL，过期后在读取时淘汰。
// 约束：容量按条目数计；并发安全。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry struct {
	key string
	val string
	exp time.Time
}

// NewLRU：capacity<=0 时取 4096，ttlSeconds<=0 时取 1 小时
func NewLRU(capacity, ttlSeconds int) *LRU {
	if capacity <= 0 {
		capacity = 4096
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = time.Hour
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[key]
	if !ok {
		return "", false
	}
	it := e.Value.(entry)
	if !c.now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, key)
		return "", false
	}
	c.lst.MoveToFront(e)
	return it.val, true
}

func (c *LRU) Set(_ context.Context, key, val string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := entry{key: key, val: val, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[key]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[key] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(entry).key)
		c.lst.Remove(back)
	}
}

// Len 返回当前条目数（含尚未淘汰的过期条目）
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

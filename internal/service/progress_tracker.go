package service

import (
	"ai_course_backend/internal/util"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const progressTTL = 2 * time.Hour

// ProgressTracker 记录多章节生成进度，供前端轮询
type ProgressTracker interface {
	Save(ctx context.Context, key string, p GenerationProgress) error
	Get(ctx context.Context, key string) (*GenerationProgress, error)
}

func progressKey(key string) string {
	return "generation:progress:" + key
}

// RedisProgressTracker 多实例部署时使用
type RedisProgressTracker struct {
	rdb *redis.Client
}

func NewRedisProgressTracker(rdb *redis.Client) *RedisProgressTracker {
	return &RedisProgressTracker{rdb: rdb}
}

func (t *RedisProgressTracker) Save(ctx context.Context, key string, p GenerationProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return t.rdb.Set(ctx, progressKey(key), data, progressTTL).Err()
}

func (t *RedisProgressTracker) Get(ctx context.Context, key string) (*GenerationProgress, error) {
	data, err := t.rdb.Get(ctx, progressKey(key)).Bytes()
	if err == redis.Nil {
		return nil, util.ErrProgressNotAvailable
	}
	if err != nil {
		return nil, err
	}
	var p GenerationProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type memoryEntry struct {
	progress  GenerationProgress
	expiresAt time.Time
}

// MemoryProgressTracker 未启用 Redis 时的进程内实现
type MemoryProgressTracker struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryProgressTracker() *MemoryProgressTracker {
	return &MemoryProgressTracker{entries: make(map[string]memoryEntry), now: time.Now}
}

func (t *MemoryProgressTracker) Save(ctx context.Context, key string, p GenerationProgress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, e := range t.entries {
		if now.After(e.expiresAt) {
			delete(t.entries, k)
		}
	}
	t.entries[key] = memoryEntry{progress: p, expiresAt: now.Add(progressTTL)}
	return nil
}

func (t *MemoryProgressTracker) Get(ctx context.Context, key string) (*GenerationProgress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || t.now().After(e.expiresAt) {
		return nil, util.ErrProgressNotAvailable
	}
	p := e.progress
	return &p, nil
}

// NewProgressTracker rdb 为 nil 时退化为进程内存
func NewProgressTracker(rdb *redis.Client) ProgressTracker {
	if rdb == nil {
		return NewMemoryProgressTracker()
	}
	return NewRedisProgressTracker(rdb)
}

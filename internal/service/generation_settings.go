package service

import (
	"ai_course_backend/internal/config"
	"sync"
	"time"
)

// GenerationSettings 生成节奏配置，配置文件热更新时整体替换
type GenerationSettings struct {
	mu  sync.RWMutex
	cfg config.GenerationConfig
}

func NewGenerationSettings(cfg config.GenerationConfig) *GenerationSettings {
	return &GenerationSettings{cfg: withDefaults(cfg)}
}

func withDefaults(cfg config.GenerationConfig) config.GenerationConfig {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay < 0 {
		cfg.RetryBaseDelay = 5 * time.Second
	}
	if cfg.NewlineMarker == "" {
		cfg.NewlineMarker = "<br>"
	}
	return cfg
}

func (s *GenerationSettings) Get() config.GenerationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *GenerationSettings) Update(cfg config.GenerationConfig) {
	s.mu.Lock()
	s.cfg = withDefaults(cfg)
	s.mu.Unlock()
}

// RetryPolicy 按当前配置生成重试策略
func (s *GenerationSettings) RetryPolicy(sleep SleepFunc) RetryPolicy {
	cfg := s.Get()
	return RetryPolicy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay, Sleep: sleep}
}

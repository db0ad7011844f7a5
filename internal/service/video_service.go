package service

import (
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/model"
	"ai_course_backend/pkg/logger"
	"ai_course_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// VideoSearcher 主题到视频列表，失败时返回空列表
type VideoSearcher interface {
	SearchVideos(ctx context.Context, topic string) []model.Video
	EnrichTopics(ctx context.Context, topics []model.TopicContent) int
}

type VideoService struct {
	yt         *youtube.Service
	rdb        *redis.Client
	maxResults int64
	cacheTTL   time.Duration
}

// NewVideoService 未配置 key 时仍返回实例，检索结果恒为空
func NewVideoService(ctx context.Context, cfg config.VideoConfig, rdb *redis.Client) (*VideoService, error) {
	s := &VideoService{rdb: rdb, maxResults: cfg.MaxResults, cacheTTL: cfg.CacheTTL}
	if s.maxResults <= 0 {
		s.maxResults = 2
	}
	if cfg.APIKey == "" {
		logger.Log.Warn("YouTube API key not configured, video enrichment disabled")
		return s, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	yt, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube client: %w", err)
	}
	s.yt = yt
	return s, nil
}

func (s *VideoService) Enabled() bool {
	return s.yt != nil
}

func cacheKey(topic string, n int64) string {
	return fmt.Sprintf("video:search:%d:%s", n, strings.ToLower(strings.Join(strings.Fields(topic), " ")))
}

func (s *VideoService) SearchVideos(ctx context.Context, topic string) []model.Video {
	videos := []model.Video{}
	if s.yt == nil || strings.TrimSpace(topic) == "" {
		return videos
	}

	key := cacheKey(topic, s.maxResults)
	if cached, ok := s.fromCache(ctx, key); ok {
		monitoring.VideoLookups.WithLabelValues("cache_hit").Inc()
		return cached
	}

	resp, err := s.yt.Search.List([]string{"snippet"}).
		Q(topic).
		Type("video").
		VideoEmbeddable("true").
		MaxResults(s.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		monitoring.VideoLookups.WithLabelValues("error").Inc()
		logger.Log.Warn("YouTube search failed", zap.String("topic", topic), zap.Error(err))
		return videos
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, toVideo(item))
	}
	monitoring.VideoLookups.WithLabelValues("success").Inc()
	s.toCache(ctx, key, videos)
	return videos
}

func toVideo(item *youtube.SearchResult) model.Video {
	id := item.Id.VideoId
	return model.Video{
		VideoID:     id,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Thumbnail:   thumbnailURL(item.Snippet.Thumbnails),
		Channel:     item.Snippet.ChannelTitle,
		PublishedAt: item.Snippet.PublishedAt,
		EmbedURL:    "https://www.youtube.com/embed/" + id,
		WatchURL:    "https://www.youtube.com/watch?v=" + id,
	}
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func (s *VideoService) fromCache(ctx context.Context, key string) ([]model.Video, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Debug("Video cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var videos []model.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, false
	}
	return videos, true
}

func (s *VideoService) toCache(ctx context.Context, key string, videos []model.Video) {
	if s.rdb == nil || len(videos) == 0 {
		return
	}
	data, err := json.Marshal(videos)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		logger.Log.Debug("Video cache write failed", zap.Error(err))
	}
}

// EnrichTopics 并发检索，结果按下标写回，返回视频总数
func (s *VideoService) EnrichTopics(ctx context.Context, topics []model.TopicContent) int {
	results := make([][]model.Video, len(topics))

	g, gctx := errgroup.WithContext(ctx)
	for i := range topics {
		i := i
		g.Go(func() error {
			results[i] = s.SearchVideos(gctx, topics[i].Topic)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for i := range topics {
		topics[i].Videos = results[i]
		total += len(results[i])
	}
	return total
}

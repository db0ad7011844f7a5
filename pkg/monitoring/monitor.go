package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 60, 180},
		},
		[]string{"method", "endpoint"},
	)

	// AICalls 按 provider / 操作 / 结果统计模型调用
	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generation_calls_total",
			Help: "Total number of AI generation calls",
		},
		[]string{"provider", "operation", "outcome"},
	)

	AIRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_generation_rate_limit_retries_total",
			Help: "Retries caused by provider rate limiting",
		},
	)

	NormalizerStrategy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_response_normalizer_total",
			Help: "AI responses by the normalizer strategy that parsed them",
		},
		[]string{"kind", "strategy"},
	)

	VideoLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_lookups_total",
			Help: "Video search lookups by outcome",
		},
		[]string{"outcome"},
	)

	ChapterGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapter_generations_total",
			Help: "Chapters generated in multi-chapter runs by outcome",
		},
		[]string{"outcome"},
	)
)

var once sync.Once

// Init 可重复调用，只注册一次
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AICalls,
			AIRetries,
			NormalizerStrategy,
			VideoLookups,
			ChapterGenerations,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// ContentDeletions 按实体和结果统计删除请求
	ContentDeletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_deletions_total",
			Help: "Hierarchy deletion requests by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	CascadedLessons = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_cascaded_lessons_total",
			Help: "Lessons removed as part of a module cascade",
		},
	)

	SlugResolutionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slug_resolution_attempts",
			Help:    "Existence checks needed to find a free slug",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 50, 100},
		},
	)

	SlugResolutionFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slug_resolution_fallbacks_total",
			Help: "Slug resolutions that gave up on counters and used a timestamp",
		},
	)

	SlugPersistConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slug_persist_conflicts_total",
			Help: "Unique index violations on slug at persist time",
		},
	)

	ActivityRecordFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_record_failures_total",
			Help: "Best-effort activity records that failed",
		},
	)

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ContentDeletions,
			CascadedLessons,
			SlugResolutionAttempts,
			SlugResolutionFallbacks,
			SlugPersistConflicts,
			ActivityRecordFailures,
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

package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter считает HTTP-запросы по методу, маршруту и статусу.
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration измеряет длительность обработки HTTP-запросов.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// OpenTokens — число открытых (неотвеченных, неистекших) токенов заявок.
	OpenTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_open_request_tokens",
		Help: "Number of open supplier request tokens",
	})

	// ExpiredTokens — число просроченных токенов без ответа.
	ExpiredTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_expired_request_tokens",
		Help: "Number of expired unanswered supplier request tokens",
	})

	// StaleAwaitingSteps — число шагов, застрявших в ожидании подтверждения.
	StaleAwaitingSteps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_stale_awaiting_steps",
		Help: "Number of steps awaiting confirmation longer than the staleness window",
	})
)

// Handler возвращает обработчик /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware собирает метрики по каждому запросу.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		RequestCounter.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// 上游指标
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	llmTokensUsed           *prometheus.CounterVec
	taskPolls               *prometheus.CounterVec

	// 功能指标
	featureRequestsTotal *prometheus.CounterVec
	featureDuration      *prometheus.HistogramVec
	batchItems           *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	c.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 240},
	}, []string{"method", "path"})

	c.httpResponseSize = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	c.httpRateLimited = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the per-IP rate limiter",
	})

	// 上游指标
	c.upstreamRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of vendor API calls",
	}, []string{"provider", "operation", "status"})

	c.upstreamRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Vendor API call duration in seconds, polling included",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
	}, []string{"provider", "operation"})

	c.llmTokensUsed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_used_total",
		Help:      "Total number of tokens used",
	}, []string{"provider", "model", "type"})

	c.taskPolls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_task_polls_total",
		Help:      "Async image task status reads",
	}, []string{"provider", "status"})

	// 功能指标
	c.featureRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_requests_total",
		Help:      "Total number of feature calls",
	}, []string{"feature", "platform", "outcome"})

	c.featureDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "feature_duration_seconds",
		Help:      "Feature call duration in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 240},
	}, []string{"feature", "platform"})

	c.batchItems = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_items_total",
		Help:      "Per-item outcomes of idea image batches",
	}, []string{"outcome"})

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits",
	}, []string{"cache_type"})

	c.cacheMisses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses",
	}, []string{"cache_type"})

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_open",
		Help:      "Number of open database connections",
	}, []string{"database"})

	c.dbConnectionsIdle = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_idle",
		Help:      "Number of idle database connections",
	}, []string{"database"})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// HTTP
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordRateLimited 记录一次限流拒绝
func (c *Collector) RecordRateLimited() {
	c.httpRateLimited.Inc()
}

// =============================================================================
// 上游
// =============================================================================

// RecordUpstream 记录一次上游调用；status 为 ok 或错误码
func (c *Collector) RecordUpstream(provider, operation, status string, duration time.Duration) {
	c.upstreamRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.upstreamRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordTokens 记录 token 用量
func (c *Collector) RecordTokens(provider, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordTaskPoll 记录一次任务状态读取
func (c *Collector) RecordTaskPoll(provider, status string) {
	c.taskPolls.WithLabelValues(provider, status).Inc()
}

// =============================================================================
// 功能
// =============================================================================

// RecordFeature 记录一次功能调用
func (c *Collector) RecordFeature(feature, platform, outcome string, duration time.Duration) {
	c.featureRequestsTotal.WithLabelValues(feature, platform, outcome).Inc()
	c.featureDuration.WithLabelValues(feature, platform).Observe(duration.Seconds())
}

// RecordBatchItem 记录创意批量中单条示例图的结果（ok 或 null）
func (c *Collector) RecordBatchItem(outcome string) {
	c.batchItems.WithLabelValues(outcome).Inc()
}

// =============================================================================
// 缓存与数据库
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// statusClass 将 HTTP 状态码归类
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

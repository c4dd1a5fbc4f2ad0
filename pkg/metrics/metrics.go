package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
	)

	// 消息发送计数
	MessageSentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_sent_count",
			Help: "Total number of messages sent",
		},
		[]string{"status"}, // status: success, failed
	)

	// 站内通知计数
	NotificationCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_created_count",
			Help: "Total number of in-app notifications created",
		},
		[]string{"type"},
	)

	// 规划投票计数
	PlanningVoteCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planning_vote_count",
			Help: "Total number of planning idea votes",
		},
		[]string{"outcome"}, // outcome: accepted, duplicate, retracted
	)

	// 实时流当前订阅者数量
	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Current number of open realtime event streams",
		},
	)

	// 实时桥接重连次数
	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_reconnect_count",
			Help: "Total number of realtime pubsub reconnect attempts",
		},
	)

	// 登录限流拒绝计数
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(sql string) {
	_ = sql // SQL 只进日志，避免指标基数爆炸
	SlowQueryCount.Inc()
}

// IncrementMessageSent 增加消息发送计数
func IncrementMessageSent(status string) {
	MessageSentCount.WithLabelValues(status).Inc()
}

// IncrementNotificationCreated 增加通知创建计数
func IncrementNotificationCreated(notifType string) {
	NotificationCreatedCount.WithLabelValues(notifType).Inc()
}

// IncrementPlanningVote 增加规划投票计数
func IncrementPlanningVote(outcome string) {
	PlanningVoteCount.WithLabelValues(outcome).Inc()
}

// IncrementRateLimitRejection 增加限流拒绝计数
func IncrementRateLimitRejection(route string) {
	RateLimitRejections.WithLabelValues(route).Inc()
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 外部APIクライアント、ミドルウェア、ハンドラーから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration)
	RecordUpstreamFailure(endpoint string)
	RecordHTTPStatus(statusCode int)
	RecordEntitlementRejection()
	RecordThrottled()
	RecordLogin(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	httpStatus       *prometheus.CounterVec
	entitlementDeny  prometheus.Counter
	throttled        prometheus.Counter
	logins           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_upstream_requests_total",
			Help: "外部APIへのリクエスト数（エンドポイント・ステータス別）",
		}, []string{"endpoint", "status_code"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_upstream_failures_total",
			Help: "外部APIへの通信失敗数（レスポンスなし）",
		}, []string{"endpoint"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatgate_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		entitlementDeny: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatgate_entitlement_rejections_total",
			Help: "1日のメッセージ上限超過で拒否した数",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatgate_throttled_requests_total",
			Help: "リクエストスロットルで拒否した数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgate_login_attempts_total",
			Help: "ログイン・登録の試行数（結果別）",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamFailures,
		c.upstreamLatency,
		c.httpStatus,
		c.entitlementDeny,
		c.throttled,
		c.logins,
	)

	return c
}

// RecordUpstreamRequest は外部APIのレスポンスを記録する。
func (c *Collector) RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordUpstreamFailure は外部APIへの通信失敗を記録する。
func (c *Collector) RecordUpstreamFailure(endpoint string) {
	c.upstreamFailures.WithLabelValues(endpoint).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordEntitlementRejection はメッセージ上限超過による拒否を記録する。
func (c *Collector) RecordEntitlementRejection() {
	c.entitlementDeny.Inc()
}

// RecordThrottled はスロットルによる拒否を記録する。
func (c *Collector) RecordThrottled() {
	c.throttled.Inc()
}

// RecordLogin はログイン・登録の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordUpstreamRequest(string, int, time.Duration) {}
func (Nop) RecordUpstreamFailure(string)                     {}
func (Nop) RecordHTTPStatus(int)                             {}
func (Nop) RecordEntitlementRejection()                      {}
func (Nop) RecordThrottled()                                 {}
func (Nop) RecordLogin(string)                               {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

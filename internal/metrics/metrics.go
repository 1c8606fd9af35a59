// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// リクエスト結果のラベル値
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
	OutcomeDuplicate  = "duplicate"
)

// Recorder はメトリクス収集のインターフェース。
// ストアとAPIクライアントから利用する。
type Recorder interface {
	RecordRequest(store, op, outcome string)
	RecordAPICall(endpoint string, statusCode int, duration time.Duration)
	RecordMessage(domain, kind string)
}

// Nop は何も記録しないRecorder。
type Nop struct{}

// RecordRequest は何もしない。
func (Nop) RecordRequest(string, string, string) {}

// RecordAPICall は何もしない。
func (Nop) RecordAPICall(string, int, time.Duration) {}

// RecordMessage は何もしない。
func (Nop) RecordMessage(string, string) {}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storeRequests *prometheus.CounterVec
	apiCalls      *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	messages      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photoshare_store_requests_total",
			Help: "ストア操作の結果別の合計数",
		}, []string{"store", "op", "outcome"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photoshare_api_requests_total",
			Help: "API呼び出しのステータスコード別の合計数",
		}, []string{"endpoint", "status_code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photoshare_api_latency_seconds",
			Help:    "API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photoshare_messages_total",
			Help: "表示したステータスメッセージの合計数",
		}, []string{"domain", "kind"}),
	}

	reg.MustRegister(
		c.storeRequests,
		c.apiCalls,
		c.apiLatency,
		c.messages,
	)

	return c
}

// RecordRequest はストア操作の結果を記録する。
func (c *Collector) RecordRequest(store, op, outcome string) {
	c.storeRequests.WithLabelValues(store, op, outcome).Inc()
}

// RecordAPICall はAPI呼び出しのステータスとレイテンシを記録する。
// 通信自体が失敗した場合、statusCodeは0として記録される。
func (c *Collector) RecordAPICall(endpoint string, statusCode int, duration time.Duration) {
	c.apiCalls.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.apiLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordMessage はメッセージ表示を記録する。
func (c *Collector) RecordMessage(domain, kind string) {
	c.messages.WithLabelValues(domain, kind).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// middlewaresは登録順に適用される。
func SetupMetricsRoute(gatherer prometheus.Gatherer, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Method(http.MethodGet, "/metrics", Handler(gatherer))
	return r
}

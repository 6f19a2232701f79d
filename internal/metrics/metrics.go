// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// storage.Observer、cart.MetricsRecorder、auth.MetricsRecorderを満たす。
type Collector struct {
	storageFallback *prometheus.CounterVec
	storageWriteErr *prometheus.CounterVec
	cartMutations   *prometheus.CounterVec
	authAttempts    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	catalogProducts prometheus.Gauge
	scopesPurged    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storageFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_storage_fallback_total",
			Help: "ストレージ読み込みが既定値にフォールバックした回数",
		}, []string{"record", "reason"}),
		storageWriteErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_storage_write_failures_total",
			Help: "ストレージ書き込みに失敗した回数",
		}, []string{"record"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "カート変更操作の回数",
		}, []string{"op"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_attempts_total",
			Help: "サインアップ・ログイン・ログアウトの試行回数",
		}, []string{"op", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		catalogProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_catalog_products",
			Help: "カタログに掲載中の商品数",
		}),
		scopesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_scopes_purged_total",
			Help: "クリーンアップで削除された訪問者スコープの合計数",
		}),
	}

	reg.MustRegister(
		c.storageFallback,
		c.storageWriteErr,
		c.cartMutations,
		c.authAttempts,
		c.httpStatus,
		c.requestLatency,
		c.catalogProducts,
		c.scopesPurged,
	)

	return c
}

// RecordStorageFallback はレコード読み込みのフォールバックを記録する。
func (c *Collector) RecordStorageFallback(record, reason string) {
	c.storageFallback.WithLabelValues(record, reason).Inc()
}

// RecordStorageWriteFailure はレコード書き込みの失敗を記録する。
func (c *Collector) RecordStorageWriteFailure(record string) {
	c.storageWriteErr.WithLabelValues(record).Inc()
}

// RecordCartMutation はカート変更操作を記録する。
func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

// RecordAuthAttempt は認証操作の結果を記録する。
func (c *Collector) RecordAuthAttempt(op, outcome string) {
	c.authAttempts.WithLabelValues(op, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// SetCatalogProducts はカタログの商品数を設定する。
func (c *Collector) SetCatalogProducts(n int) {
	c.catalogProducts.Set(float64(n))
}

// RecordScopesPurged は削除されたスコープ数を記録する。
func (c *Collector) RecordScopesPurged(count int64) {
	c.scopesPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントだけを持つハンドラーを返す。
// workerサブコマンドで単独のメトリクスサーバーを立てる際に使う。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

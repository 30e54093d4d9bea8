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
// サービス層・ワーカー・HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordCartMutation(op string)
	RecordWishlistMutation(op string)
	RecordDanglingReference(collection string)
	RecordRecount(updated int64)
	RecordNewsFetch(result string)
	RecordOutboundLatency(target string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cartMutations     *prometheus.CounterVec
	wishlistMutations *prometheus.CounterVec
	danglingRefs      *prometheus.CounterVec
	recountRuns       prometheus.Counter
	recountUpdated    prometheus.Counter
	newsFetch         *prometheus.CounterVec
	outboundLatency   *prometheus.HistogramVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_cart_mutations_total",
			Help: "操作別のカート更新数",
		}, []string{"op"}),
		wishlistMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_wishlist_mutations_total",
			Help: "操作別のウィッシュリスト更新数",
		}, []string{"op"}),
		danglingRefs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_dangling_references_total",
			Help: "削除済み商品を参照していた行の検出数",
		}, []string{"collection"}),
		recountRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrimarket_category_recount_runs_total",
			Help: "カテゴリ商品数の再集計実行回数",
		}),
		recountUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrimarket_category_recount_updated_total",
			Help: "再集計時点で商品を持っていたカテゴリ数の累計",
		}),
		newsFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_news_fetch_total",
			Help: "結果別のニュース取得数",
		}, []string{"result"}),
		outboundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agrimarket_outbound_latency_seconds",
			Help:    "外部サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimarket_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.cartMutations,
		c.wishlistMutations,
		c.danglingRefs,
		c.recountRuns,
		c.recountUpdated,
		c.newsFetch,
		c.outboundLatency,
		c.httpStatus,
	)

	return c
}

// RecordCartMutation はカート更新を記録する。opはadd/update/remove。
func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

// RecordWishlistMutation はウィッシュリスト更新を記録する。
func (c *Collector) RecordWishlistMutation(op string) {
	c.wishlistMutations.WithLabelValues(op).Inc()
}

// RecordDanglingReference は商品が解決できなかった行を記録する。
func (c *Collector) RecordDanglingReference(collection string) {
	c.danglingRefs.WithLabelValues(collection).Inc()
}

// RecordRecount は再集計の実行と、商品を持つカテゴリの数を記録する。
func (c *Collector) RecordRecount(updated int64) {
	c.recountRuns.Inc()
	c.recountUpdated.Add(float64(updated))
}

// RecordNewsFetch はニュース取得結果を記録する。
func (c *Collector) RecordNewsFetch(result string) {
	c.newsFetch.WithLabelValues(result).Inc()
}

// RecordOutboundLatency は外部呼び出しのレイテンシを記録する。
func (c *Collector) RecordOutboundLatency(target string, duration time.Duration) {
	c.outboundLatency.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)

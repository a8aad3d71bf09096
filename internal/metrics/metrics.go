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
// ハンドラー、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordGamePlay(device string)
	RecordAccessTokenRejected(reason string)
	RecordDomainCheck(status string)
	RecordDomainCheckLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordGamesImported(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gamePlays          *prometheus.CounterVec
	accessRejected     *prometheus.CounterVec
	domainChecks       *prometheus.CounterVec
	domainCheckLatency prometheus.Histogram
	httpStatus         *prometheus.CounterVec
	gamesImported      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gamePlays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameportal_game_plays_total",
			Help: "ゲームプロキシ経由のプレイ数",
		}, []string{"device"}),
		accessRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameportal_access_token_rejected_total",
			Help: "拒否されたゲームアクセストークンの数",
		}, []string{"reason"}),
		domainChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameportal_domain_checks_total",
			Help: "ドメインDNS検証の結果別件数",
		}, []string{"status"}),
		domainCheckLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gameportal_domain_check_latency_seconds",
			Help:    "ドメインDNS検証のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameportal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		gamesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gameportal_games_imported_total",
			Help: "フィードから取り込んだゲームの合計数",
		}),
	}

	reg.MustRegister(
		c.gamePlays,
		c.accessRejected,
		c.domainChecks,
		c.domainCheckLatency,
		c.httpStatus,
		c.gamesImported,
	)

	return c
}

// RecordGamePlay はプレイを端末種別ごとに記録する。
func (c *Collector) RecordGamePlay(device string) {
	c.gamePlays.WithLabelValues(device).Inc()
}

// RecordAccessTokenRejected はアクセストークンの拒否を理由ごとに記録する。
func (c *Collector) RecordAccessTokenRejected(reason string) {
	c.accessRejected.WithLabelValues(reason).Inc()
}

// RecordDomainCheck はDNS検証結果を記録する。
func (c *Collector) RecordDomainCheck(status string) {
	c.domainChecks.WithLabelValues(status).Inc()
}

// RecordDomainCheckLatency はDNS検証のレイテンシを記録する。
func (c *Collector) RecordDomainCheckLatency(duration time.Duration) {
	c.domainCheckLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordGamesImported は取り込んだゲーム数を記録する。
func (c *Collector) RecordGamesImported(count int) {
	c.gamesImported.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordGamePlay(string)                  {}
func (Nop) RecordAccessTokenRejected(string)       {}
func (Nop) RecordDomainCheck(string)               {}
func (Nop) RecordDomainCheckLatency(time.Duration) {}
func (Nop) RecordHTTPStatus(int)                   {}
func (Nop) RecordGamesImported(int)                {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

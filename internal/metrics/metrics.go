// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordLogin(newUser bool)
	RecordTokenRotation()
	RecordTokenReuseDetected()
	RecordFriendRequest()
	RecordConversationCreated(isGroup bool)
	RecordHTTPStatus(statusCode int)
	RecordTokensCleaned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins               *prometheus.CounterVec
	tokenRotations       prometheus.Counter
	tokenReuseDetected   prometheus.Counter
	friendRequests       prometheus.Counter
	conversationsCreated *prometheus.CounterVec
	httpStatus           *prometheus.CounterVec
	tokensCleaned        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tomolink_logins_total",
			Help: "ログイン成功の合計数（新規/既存ユーザー別）",
		}, []string{"new_user"}),
		tokenRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tomolink_token_rotations_total",
			Help: "リフレッシュトークンローテーション成功の合計数",
		}),
		tokenReuseDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tomolink_token_reuse_detected_total",
			Help: "失効済みリフレッシュトークン再利用検出の合計数",
		}),
		friendRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tomolink_friend_requests_total",
			Help: "友達申請作成の合計数",
		}),
		conversationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tomolink_conversations_created_total",
			Help: "会話作成の合計数（ダイレクト/グループ別）",
		}, []string{"is_group"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tomolink_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		tokensCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tomolink_tokens_cleaned_total",
			Help: "クリーンアップで削除されたリフレッシュトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.tokenRotations,
		c.tokenReuseDetected,
		c.friendRequests,
		c.conversationsCreated,
		c.httpStatus,
		c.tokensCleaned,
	)

	return c
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin(newUser bool) {
	c.logins.WithLabelValues(strconv.FormatBool(newUser)).Inc()
}

// RecordTokenRotation はトークンローテーション成功を記録する。
func (c *Collector) RecordTokenRotation() {
	c.tokenRotations.Inc()
}

// RecordTokenReuseDetected は失効済みトークンの再利用検出を記録する。
func (c *Collector) RecordTokenReuseDetected() {
	c.tokenReuseDetected.Inc()
}

// RecordFriendRequest は友達申請の作成を記録する。
func (c *Collector) RecordFriendRequest() {
	c.friendRequests.Inc()
}

// RecordConversationCreated は会話の新規作成を記録する。
func (c *Collector) RecordConversationCreated(isGroup bool) {
	c.conversationsCreated.WithLabelValues(strconv.FormatBool(isGroup)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTokensCleaned はクリーンアップで削除されたトークン数を記録する。
func (c *Collector) RecordTokensCleaned(count int) {
	c.tokensCleaned.Add(float64(count))
}

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

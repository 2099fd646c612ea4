package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) (float64, bool) {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					matched = false
					break
				}
			}
			if matched {
				return m.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

// TestRecordLogin_IncrementsCounterWithLabel はログインカウンタが
// 新規/既存ユーザーのラベル付きで増加することを検証する。
func TestRecordLogin_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordLogin(false)

	if val, ok := counterValue(t, reg, "tomolink_logins_total", map[string]string{"new_user": "true"}); !ok || val != 1 {
		t.Errorf("logins_total{new_user=true} = %v (found=%v), want 1", val, ok)
	}
	if val, ok := counterValue(t, reg, "tomolink_logins_total", map[string]string{"new_user": "false"}); !ok || val != 2 {
		t.Errorf("logins_total{new_user=false} = %v (found=%v), want 2", val, ok)
	}
}

// TestRecordTokenRotation_IncrementsCounter はローテーションカウンタの増加を検証する。
func TestRecordTokenRotation_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenRotation()
	c.RecordTokenRotation()

	if val, ok := counterValue(t, reg, "tomolink_token_rotations_total", nil); !ok || val != 2 {
		t.Errorf("token_rotations_total = %v (found=%v), want 2", val, ok)
	}
}

// TestRecordTokenReuseDetected_IncrementsCounter は再利用検出カウンタの増加を検証する。
func TestRecordTokenReuseDetected_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenReuseDetected()

	if val, ok := counterValue(t, reg, "tomolink_token_reuse_detected_total", nil); !ok || val != 1 {
		t.Errorf("token_reuse_detected_total = %v (found=%v), want 1", val, ok)
	}
}

// TestRecordConversationCreated_LabelsByKind は会話作成カウンタが
// ダイレクト/グループのラベル付きで増加することを検証する。
func TestRecordConversationCreated_LabelsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordConversationCreated(false)
	c.RecordConversationCreated(true)
	c.RecordConversationCreated(true)

	if val, ok := counterValue(t, reg, "tomolink_conversations_created_total", map[string]string{"is_group": "true"}); !ok || val != 2 {
		t.Errorf("conversations_created_total{is_group=true} = %v (found=%v), want 2", val, ok)
	}
}

// TestRecordTokensCleaned_AddsCount は削除件数が加算されることを検証する。
func TestRecordTokensCleaned_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokensCleaned(10)
	c.RecordTokensCleaned(5)

	if val, ok := counterValue(t, reg, "tomolink_tokens_cleaned_total", nil); !ok || val != 15 {
		t.Errorf("tokens_cleaned_total = %v (found=%v), want 15", val, ok)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタが
// ステータスコードのラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	if val, ok := counterValue(t, reg, "tomolink_http_status_total", map[string]string{"status_code": "200"}); !ok || val != 2 {
		t.Errorf("http_status_total{status_code=200} = %v (found=%v), want 2", val, ok)
	}
	if val, ok := counterValue(t, reg, "tomolink_http_status_total", map[string]string{"status_code": "401"}); !ok || val != 1 {
		t.Errorf("http_status_total{status_code=401} = %v (found=%v), want 1", val, ok)
	}
}

// TestSetupMetricsRoute_ServesPrometheusFormat は/metricsエンドポイントが
// Prometheusフォーマットで応答することを検証する。
func TestSetupMetricsRoute_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordTokenRotation()

	srv := httptest.NewServer(SetupMetricsRoute(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "tomolink_token_rotations_total 1") {
		t.Errorf("metrics output does not contain rotation counter:\n%s", body)
	}
}

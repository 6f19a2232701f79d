package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はラベルが一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	if len(m.GetLabel()) != len(want) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestRecordStorageFallback_LabelsRecordAndReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStorageFallback("gargCart", "parse_error")
	c.RecordStorageFallback("gargCart", "parse_error")
	c.RecordStorageFallback("gargUsers", "backend_error")

	m := findMetric(t, reg, "storefront_storage_fallback_total", map[string]string{"record": "gargCart", "reason": "parse_error"})
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("gargCart parse_error = %v, want 2", got)
	}
	m = findMetric(t, reg, "storefront_storage_fallback_total", map[string]string{"record": "gargUsers", "reason": "backend_error"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("gargUsers backend_error = %v, want 1", got)
	}
}

func TestRecordStorageWriteFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStorageWriteFailure("gargSession")

	m := findMetric(t, reg, "storefront_storage_write_failures_total", map[string]string{"record": "gargSession"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("write failures = %v, want 1", got)
	}
}

func TestRecordCartMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCartMutation("add")
	c.RecordCartMutation("add")
	c.RecordCartMutation("remove")

	if got := findMetric(t, reg, "storefront_cart_mutations_total", map[string]string{"op": "add"}).GetCounter().GetValue(); got != 2 {
		t.Errorf("add = %v, want 2", got)
	}
	if got := findMetric(t, reg, "storefront_cart_mutations_total", map[string]string{"op": "remove"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("remove = %v, want 1", got)
	}
}

func TestRecordAuthAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthAttempt("login", "invalid")

	m := findMetric(t, reg, "storefront_auth_attempts_total", map[string]string{"op": "login", "outcome": "invalid"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("login invalid = %v, want 1", got)
	}
}

func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(303)
	c.RecordHTTPStatus(200)

	if got := findMetric(t, reg, "storefront_http_responses_total", map[string]string{"status_code": "200"}).GetCounter().GetValue(); got != 2 {
		t.Errorf("200 = %v, want 2", got)
	}
}

func TestRecordRequestLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	m := findMetric(t, reg, "storefront_http_request_duration_seconds", map[string]string{})
	if got := m.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestSetCatalogProductsAndScopesPurged(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetCatalogProducts(6)
	c.RecordScopesPurged(3)
	c.RecordScopesPurged(2)

	if got := findMetric(t, reg, "storefront_catalog_products", map[string]string{}).GetGauge().GetValue(); got != 6 {
		t.Errorf("catalog products = %v, want 6", got)
	}
	if got := findMetric(t, reg, "storefront_scopes_purged_total", map[string]string{}).GetCounter().GetValue(); got != 5 {
		t.Errorf("scopes purged = %v, want 5", got)
	}
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はレジストリから名前とラベルが一致するメトリクスを探す。
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

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordCartMutation_CountsByOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCartMutation("add")
	c.RecordCartMutation("add")
	c.RecordCartMutation("remove")

	if v := findMetric(t, reg, "agrimarket_cart_mutations_total", map[string]string{"op": "add"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("cart_mutations_total{op=add} = %v, want 2", v)
	}
	if v := findMetric(t, reg, "agrimarket_cart_mutations_total", map[string]string{"op": "remove"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("cart_mutations_total{op=remove} = %v, want 1", v)
	}
}

func TestRecordWishlistMutation_CountsByOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordWishlistMutation("move")

	if v := findMetric(t, reg, "agrimarket_wishlist_mutations_total", map[string]string{"op": "move"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("wishlist_mutations_total{op=move} = %v, want 1", v)
	}
}

func TestRecordDanglingReference_CountsByCollection(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDanglingReference("cart")
	c.RecordDanglingReference("wishlist")
	c.RecordDanglingReference("cart")

	if v := findMetric(t, reg, "agrimarket_dangling_references_total", map[string]string{"collection": "cart"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("dangling_references_total{collection=cart} = %v, want 2", v)
	}
}

func TestRecordRecount_TracksRunsAndRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRecount(3)
	c.RecordRecount(4)

	if v := findMetric(t, reg, "agrimarket_category_recount_runs_total", nil).GetCounter().GetValue(); v != 2 {
		t.Errorf("recount_runs_total = %v, want 2", v)
	}
	if v := findMetric(t, reg, "agrimarket_category_recount_updated_total", nil).GetCounter().GetValue(); v != 7 {
		t.Errorf("recount_updated_total = %v, want 7", v)
	}
}

func TestRecordNewsFetch_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNewsFetch("fallback")

	if v := findMetric(t, reg, "agrimarket_news_fetch_total", map[string]string{"result": "fallback"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("news_fetch_total{result=fallback} = %v, want 1", v)
	}
}

func TestRecordOutboundLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOutboundLatency("payment", 200*time.Millisecond)

	h := findMetric(t, reg, "agrimarket_outbound_latency_seconds", map[string]string{"target": "payment"}).GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample_count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.19 || h.GetSampleSum() > 0.21 {
		t.Errorf("sample_sum = %v, want ~0.2", h.GetSampleSum())
	}
}

func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(404)

	if v := findMetric(t, reg, "agrimarket_http_status_total", map[string]string{"status_code": "404"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("http_status_total{status_code=404} = %v, want 1", v)
	}
}

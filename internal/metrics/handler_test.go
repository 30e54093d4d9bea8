package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandler_ExposesDomainMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCartMutation("add")
	c.RecordDanglingReference("wishlist")
	c.RecordRecount(2)
	c.RecordOutboundLatency("payment", 120*time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Result().Body)
	text := string(body)

	for _, want := range []string{
		`agrimarket_cart_mutations_total{op="add"} 1`,
		`agrimarket_dangling_references_total{collection="wishlist"} 1`,
		`agrimarket_category_recount_updated_total 2`,
		`agrimarket_outbound_latency_seconds_count{target="payment"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("response does not contain %q", want)
		}
	}
}

func TestHandler_OnlyServesGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// プロセス既定のレジストリの内容は混ざらない
	if strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("handler must not expose the default registry")
	}
}

package resilience

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestNewBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewBreaker[int]("test", BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v, want boom", i, err)
		}
	}

	_, err := cb.Execute(func() (int, error) {
		t.Error("open breaker must not call the function")
		return 1, nil
	})
	if !IsOpen(err) {
		t.Errorf("IsOpen(%v) = false, want true", err)
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("State = %v, want open", cb.State())
	}
}

func TestNewBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewBreaker[string]("test", BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1})
	boom := errors.New("boom")

	cb.Execute(func() (string, error) { return "", boom })
	cb.Execute(func() (string, error) { return "ok", nil })
	cb.Execute(func() (string, error) { return "", boom })

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestIsOpen_OtherErrors(t *testing.T) {
	if IsOpen(errors.New("timeout")) {
		t.Error("IsOpen(timeout) = true, want false")
	}
	if IsOpen(nil) {
		t.Error("IsOpen(nil) = true, want false")
	}
}

func TestInstrumentClient_KeepsSettings(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	base := &http.Client{Timeout: 3 * time.Second}
	c := InstrumentClient(base)
	if c.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", c.Timeout)
	}
	if c.Transport == nil {
		t.Fatal("expected instrumented transport")
	}

	resp, err := c.Get(ts.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

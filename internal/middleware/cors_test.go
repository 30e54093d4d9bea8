package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	const origin = "https://shop.example.com"

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantNext   bool
	}{
		{"カート更新のプリフライト", http.MethodOptions, "/api/cart/items/l1", http.StatusNoContent, false},
		{"ライブ配信の接続", http.MethodGet, "/api/live/cart", http.StatusOK, true},
		{"ウィッシュリスト追加", http.MethodPost, "/api/wishlist", http.StatusCreated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := NewCORSMiddleware(origin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				if r.Method == http.MethodPost {
					w.WriteHeader(http.StatusCreated)
				}
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, origin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
				t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
			}
			if got := w.Header().Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want Origin", got)
			}
		})
	}
}

func TestCORSMiddleware_AllowsIdentityAndResumeHeaders(t *testing.T) {
	h := NewCORSMiddleware("https://shop.example.com")(http.NotFoundHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/live/wishlist", nil))

	allowed := w.Header().Get("Access-Control-Allow-Headers")
	for _, header := range []string{SubjectHeader, "Last-Event-ID", "Content-Type"} {
		if !strings.Contains(allowed, header) {
			t.Errorf("Access-Control-Allow-Headers = %q, missing %s", allowed, header)
		}
	}
	methods := w.Header().Get("Access-Control-Allow-Methods")
	for _, m := range []string{http.MethodPut, http.MethodDelete} {
		if !strings.Contains(methods, m) {
			t.Errorf("Access-Control-Allow-Methods = %q, missing %s", methods, m)
		}
	}
}

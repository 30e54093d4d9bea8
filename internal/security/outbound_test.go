package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSafeClient_Timeout(t *testing.T) {
	client := NewSafeClient(5 * time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want %v", client.Timeout, 5*time.Second)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("expected a custom transport")
	}
}

// httptestサーバーは127.0.0.1で起動するため拒否される。
func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	if _, err := NewSafeClient(5 * time.Second).Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback request, got nil")
	}
}

func TestValidatePublicURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://cdn.example.com/img/wheat.jpg", wantErr: false},
		{name: "http", url: "http://example.com/a.png", wantErr: false},
		{name: "empty", url: "", wantErr: true},
		{name: "ftp", url: "ftp://example.com/a.png", wantErr: true},
		{name: "javascript", url: "javascript:alert(1)", wantErr: true},
		{name: "no host", url: "https:///path", wantErr: true},
		{name: "localhost", url: "http://LOCALHOST/a.png", wantErr: true},
		{name: "private", url: "http://192.168.1.10/a.png", wantErr: true},
		{name: "metadata", url: "http://169.254.169.254/latest", wantErr: true},
		{name: "ipv6 loopback", url: "http://[::1]/a.png", wantErr: true},
		{name: "public ip", url: "https://8.8.8.8/a.png", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublicURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePublicURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

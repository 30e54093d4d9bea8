package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/agrimarket/internal/model"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, subject string) (string, error)
}

func (m *mockResolver) Resolve(ctx context.Context, subject string) (string, error) {
	return m.resolveFn(ctx, subject)
}

func knownSubjects(pairs map[string]string) *mockResolver {
	return &mockResolver{resolveFn: func(_ context.Context, subject string) (string, error) {
		return pairs[subject], nil
	}}
}

func TestIdentityMiddleware_ResolvesSubject(t *testing.T) {
	mw := NewIdentityMiddleware(knownSubjects(map[string]string{"user_2abc": "u-1"}))

	var gotUserID, gotSubject string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		gotSubject, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(SubjectHeader, "user_2abc")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUserID != "u-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "u-1")
	}
	if gotSubject != "user_2abc" {
		t.Errorf("subject = %q, want %q", gotSubject, "user_2abc")
	}
}

func TestIdentityMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		resolver *mockResolver
		want     int
	}{
		{name: "missing header", subject: "", resolver: knownSubjects(nil), want: http.StatusUnauthorized},
		{name: "blank header", subject: "   ", resolver: knownSubjects(nil), want: http.StatusUnauthorized},
		{name: "unknown subject", subject: "user_x", resolver: knownSubjects(nil), want: http.StatusUnauthorized},
		{
			name:    "store error",
			subject: "user_x",
			resolver: &mockResolver{resolveFn: func(context.Context, string) (string, error) {
				return "", errors.New("connection refused")
			}},
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewIdentityMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.subject != "" {
				req.Header.Set(SubjectHeader, tt.subject)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if tt.want == http.StatusUnauthorized && body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestSubjectMiddleware(t *testing.T) {
	var got string
	handler := NewSubjectMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/users/sync", nil)
	req.Header.Set(SubjectHeader, "user_new")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK || got != "user_new" {
		t.Errorf("status = %d subject = %q", w.Code, got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/users/sync", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without header = %d, want 401", w.Code)
	}
}

func TestAdminTokenMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{name: "valid", configured: "s3cret", sent: "s3cret", want: http.StatusOK},
		{name: "wrong", configured: "s3cret", sent: "guess", want: http.StatusUnauthorized},
		{name: "missing", configured: "s3cret", sent: "", want: http.StatusUnauthorized},
		{name: "unconfigured", configured: "", sent: "", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAdminTokenMiddleware(tt.configured)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/admin/categories", nil)
			if tt.sent != "" {
				req.Header.Set(AdminTokenHeader, tt.sent)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
	ctx := ContextWithUserID(context.Background(), "u-9")
	if id, err := UserIDFromContext(ctx); err != nil || id != "u-9" {
		t.Errorf("UserIDFromContext = (%q, %v)", id, err)
	}
}

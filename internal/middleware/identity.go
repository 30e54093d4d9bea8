// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/agrimarket/internal/model"
)

// SubjectHeader は上流の認証プロキシが設定する外部ユーザーIDのヘッダー。
const SubjectHeader = "X-Auth-Subject"

// AdminTokenHeader は管理APIのトークンヘッダー。
const AdminTokenHeader = "X-Admin-Token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey  = contextKey("user_id")
	subjectContextKey = contextKey("auth_subject")
)

// SubjectResolver は外部認証IDを内部ユーザーIDに解決する。
// user.Serviceの部分集合として定義する。未登録の場合は空文字を返す。
type SubjectResolver interface {
	Resolve(ctx context.Context, subject string) (string, error)
}

// NewSubjectMiddleware は認証ヘッダーの存在だけを検証し、外部IDをコンテキストに注入する。
// 内部ユーザーがまだ無いプロフィール同期で使う。
func NewSubjectMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := strings.TrimSpace(r.Header.Get(SubjectHeader))
			if subject == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			ctx := context.WithValue(r.Context(), subjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewIdentityMiddleware は認証ヘッダーの外部IDを内部ユーザーIDに解決し、
// リクエストコンテキストに注入する。未登録のsubjectには401を返す。
func NewIdentityMiddleware(resolver SubjectResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := strings.TrimSpace(r.Header.Get(SubjectHeader))
			if subject == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			userID, err := resolver.Resolve(r.Context(), subject)
			if err != nil {
				slog.Error("failed to resolve identity",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if userID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			annotateUserID(r.Context(), userID)
			ctx := context.WithValue(r.Context(), subjectContextKey, subject)
			ctx = context.WithValue(ctx, userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminTokenMiddleware は管理APIのトークンを検証するミドルウェアを返す。
func NewAdminTokenMiddleware(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				slog.Warn("admin token rejected",
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SubjectFromContext はリクエストコンテキストから外部認証IDを取得する。
func SubjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("auth subject not found in context")
	}
	return subject, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSubject はコンテキストに外部認証IDを注入する。
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/agrimarket/internal/middleware"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Sync はサインイン時にプロフィールを同期する。初回はユーザーを作成しcreated=trueを返す。
	Sync(ctx context.Context, p user.Profile) (*model.User, bool, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	// Withdraw は退会処理を実行する。カートとウィッシュリストも削除される。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// syncRequest は認証プロバイダーから渡されるプロフィール。
type syncRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// Sync はプロフィールを同期する。subjectはボディではなく認証ヘッダーから取る。
// POST /api/users/sync
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	subject, err := middleware.SubjectFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req syncRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, created, err := h.service.Sync(r.Context(), user.Profile{
		Subject:  subject,
		Email:    req.Email,
		Name:     req.Name,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toUserResponse(u))
}

// Me は自分のプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

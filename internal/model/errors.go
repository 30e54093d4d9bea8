// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: not_found, validation, conflict, auth, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryNotFound   = "not_found"
	CategoryValidation = "validation"
	CategoryConflict   = "conflict"
	CategoryAuth       = "auth"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound      = "CATEGORY_NOT_FOUND"
	ErrCodeCartLineNotFound      = "CART_LINE_NOT_FOUND"
	ErrCodeWishlistEntryNotFound = "WISHLIST_ENTRY_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeInvalidPrice          = "INVALID_PRICE"
	ErrCodeInvalidID             = "INVALID_ID"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeInvalidImage          = "INVALID_IMAGE"
	ErrCodeEmptyCart             = "EMPTY_CART"
	ErrCodeConflict              = "CONFLICT"
	ErrCodePaymentFailed         = "PAYMENT_FAILED"
	ErrCodePredictionFailed      = "PREDICTION_FAILED"
	ErrCodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: CategoryNotFound,
		Action:   "商品IDを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", categoryID),
		Category: CategoryNotFound,
		Action:   "カテゴリIDを確認してください。",
	}
}

// NewCartLineNotFoundError はカート行未検出エラーを生成する。
// 他ユーザーのカート行を指定した場合もこのエラーになる。
func NewCartLineNotFoundError(lineID string) *APIError {
	return &APIError{
		Code:     ErrCodeCartLineNotFound,
		Message:  fmt.Sprintf("指定されたカート行が見つかりません: %s", lineID),
		Category: CategoryNotFound,
		Action:   "カートを再読み込みしてください。",
	}
}

// NewWishlistEntryNotFoundError はウィッシュリスト項目未検出エラーを生成する。
func NewWishlistEntryNotFoundError(entryID string) *APIError {
	return &APIError{
		Code:     ErrCodeWishlistEntryNotFound,
		Message:  fmt.Sprintf("指定されたウィッシュリスト項目が見つかりません: %s", entryID),
		Category: CategoryNotFound,
		Action:   "ウィッシュリストを再読み込みしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryNotFound,
		Action:   "ログインし直してください。",
	}
}

// NewInvalidQuantityError は数量が不正な場合のエラーを生成する。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("無効な数量です: %d", quantity),
		Category: CategoryValidation,
		Action:   "数量には1以上の整数を指定してください。",
	}
}

// NewInvalidPriceError は価格が不正な場合のエラーを生成する。
func NewInvalidPriceError(price string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  fmt.Sprintf("無効な価格です: %s", price),
		Category: CategoryValidation,
		Action:   "価格には0以上の数値を指定してください。",
	}
}

// NewInvalidIDError はIDの形式が不正な場合のエラーを生成する。
func NewInvalidIDError(field, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("無効なIDです: %s=%q", field, value),
		Category: CategoryValidation,
		Action:   "正しい形式のIDを指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗や必須項目の欠落を表す。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidImageError はアップロード画像が受け付けられない場合のエラーを生成する。
func NewInvalidImageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("画像を受け付けられません: %s", reason),
		Category: CategoryValidation,
		Action:   "PNGまたはJPEG形式の画像をアップロードしてください。",
	}
}

// NewEmptyCartError はカートが空の状態で注文を作成しようとした場合のエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空です。",
		Category: CategoryValidation,
		Action:   "商品をカートに追加してから注文してください。",
	}
}

// NewConflictError は一意制約違反を表す。
// カートのマージ経路を通っていれば発生しない。
func NewConflictError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("%s が既に存在します。", resource),
		Category: CategoryConflict,
		Action:   "再読み込みしてから再度お試しください。",
	}
}

// NewPaymentFailedError は決済ゲートウェイでの注文作成失敗を表す。
func NewPaymentFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePaymentFailed,
		Message:  "注文の作成に失敗しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPredictionFailedError は推論サービスの呼び出し失敗を表す。
func NewPredictionFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePredictionFailed,
		Message:  fmt.Sprintf("病害判定に失敗しました: %s", reason),
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewServiceUnavailableError は外部サービスのサーキットブレーカーが開いている場合のエラーを生成する。
func NewServiceUnavailableError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  fmt.Sprintf("%s は一時的に利用できません。", service),
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnauthorizedError は認証情報が無い、または未登録の利用者を表す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証されていません。",
		Category: CategoryAuth,
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewRateLimitExceededError は利用者ごとのリクエスト上限超過を表す。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: CategorySystem,
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は詳細を伏せた内部エラーを表す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

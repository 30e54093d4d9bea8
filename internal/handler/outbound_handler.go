package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/prediction"
)

// CheckoutServiceInterface は決済注文の作成を行う。
type CheckoutServiceInterface interface {
	CreateOrder(ctx context.Context, userID string) (*model.PaymentOrder, error)
}

// NewsServiceInterface はニュースフィードを返す。失敗時も固定記事を返すためエラーを持たない。
type NewsServiceInterface interface {
	Latest(ctx context.Context) *model.NewsFeed
}

// PredictionServiceInterface は病害判定を行う。
type PredictionServiceInterface interface {
	MaxUpload() int64
	Predict(ctx context.Context, u prediction.Upload) (*model.Prediction, error)
}

// multipartヘッダー等のために画像上限へ上乗せする余裕
const multipartOverhead = 64 << 10

// CheckoutHandler は決済注文のHTTPハンドラー。
type CheckoutHandler struct {
	service CheckoutServiceInterface
}

// NewCheckoutHandler はCheckoutHandlerを生成する。
func NewCheckoutHandler(service CheckoutServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

type orderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrder はカート合計で決済注文を作成する。金額はリクエストから受け取らない。
// POST /api/checkout/orders
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
	})
}

// NewsHandler はニュースのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// Latest は最新ニュースを返す。
// GET /api/news
func (h *NewsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Latest(r.Context()))
}

// PredictionHandler は病害判定のHTTPハンドラー。
type PredictionHandler struct {
	service PredictionServiceInterface
}

// NewPredictionHandler はPredictionHandlerを生成する。
func NewPredictionHandler(service PredictionServiceInterface) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// Predict はアップロードされた画像を推論サービスへ中継し、結果をそのまま返す。
// POST /api/predictions (multipart, field "file")
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	maxUpload := h.service.MaxUpload()
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewInvalidImageError("file too large"))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("multipart form is required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageError("no file uploaded"))
		return
	}
	defer file.Close()

	result, err := h.service.Predict(r.Context(), prediction.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

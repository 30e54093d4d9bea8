// Package prediction は病害判定用の推論サービスへ画像を中継する。
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/resilience"
	"github.com/sony/gobreaker/v2"
)

// 推論サービスの応答サイズ上限
const maxResponseSize = 1 << 20

// allowedContentTypes は受け付ける画像形式。
var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// 推論サービスは数値がNaNのJSONを返すことがある
var nanPattern = regexp.MustCompile(`:\s*NaN\b`)

// Recorder は外部呼び出しのメトリクス記録先。
type Recorder interface {
	RecordOutboundLatency(target string, duration time.Duration)
}

// Upload はアップロードされた画像を表す。
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Client は推論サービスのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxUpload  int64
	breaker    *gobreaker.CircuitBreaker[*model.Prediction]
	recorder   Recorder
}

// NewClient はClientを生成する。baseURLには末尾の/predictを含めない。
func NewClient(httpClient *http.Client, baseURL string, maxUpload int64, recorder Recorder) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxUpload:  maxUpload,
		breaker:    resilience.NewBreaker[*model.Prediction]("prediction", resilience.DefaultBreakerSettings()),
		recorder:   recorder,
	}
}

// MaxUpload は受け付ける画像サイズの上限を返す。
func (c *Client) MaxUpload() int64 {
	return c.maxUpload
}

// Validate はアップロード画像の形式とサイズを検証する。
func (c *Client) Validate(u Upload) error {
	ct := strings.ToLower(strings.TrimSpace(u.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedContentTypes[ct] {
		return model.NewInvalidImageError(fmt.Sprintf("unsupported content type %q", u.ContentType))
	}
	if u.Size <= 0 {
		return model.NewInvalidImageError("empty file")
	}
	if u.Size > c.maxUpload {
		return model.NewInvalidImageError(fmt.Sprintf("file too large: %d > %d bytes", u.Size, c.maxUpload))
	}
	return nil
}

// Predict は画像を推論サービスに送り、判定結果を返す。
func (c *Client) Predict(ctx context.Context, u Upload) (*model.Prediction, error) {
	if err := c.Validate(u); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(u.Body, c.maxUpload+1))
	if err != nil {
		return nil, model.NewInvalidImageError("failed to read file")
	}
	if int64(len(data)) > c.maxUpload {
		return nil, model.NewInvalidImageError(fmt.Sprintf("file too large: > %d bytes", c.maxUpload))
	}

	result, err := c.breaker.Execute(func() (*model.Prediction, error) {
		return c.send(ctx, u, data)
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return nil, model.NewServiceUnavailableError("prediction")
		}
		slog.Warn("推論サービスの呼び出しに失敗しました",
			slog.String("filename", u.Filename),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPredictionFailedError(err.Error())
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, u Upload, data []byte) (*model.Prediction, error) {
	start := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.RecordOutboundLatency("prediction", time.Since(start))
		}
	}()

	body, contentType, err := encodeMultipart(u, data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み込みに失敗: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return decodePrediction(raw)
}

// encodeMultipart は画像をfileフィールドに持つmultipartボディを組み立てる。
func encodeMultipart(u Upload, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := u.Filename
	if filename == "" {
		filename = "upload"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", u.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("multipartの作成に失敗: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("multipartの書き込みに失敗: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipartの終端に失敗: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decodePrediction はNaNを0に置き換えてから応答をデコードする。
func decodePrediction(raw []byte) (*model.Prediction, error) {
	cleaned := nanPattern.ReplaceAll(raw, []byte(": 0"))
	var p model.Prediction
	if err := json.Unmarshal(cleaned, &p); err != nil {
		return nil, fmt.Errorf("レスポンスのデコードに失敗: %w", err)
	}
	if p.Result == "" && p.Error == "" {
		return nil, errors.New("推論結果が空です")
	}
	return &p, nil
}

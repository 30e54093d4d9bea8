package model

import "time"

// NewsArticle はニュースフィードの1記事を表す。
// JSONフィールド名はフロントエンドの既存契約に合わせる。
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewsFeed はニュースAPIのレスポンスを表す。
type NewsFeed struct {
	Status       string        `json:"status"`
	Articles     []NewsArticle `json:"articles"`
	TotalResults int           `json:"totalResults"`
	Fallback     bool          `json:"-"`
}

// Prediction は病害判定サービスの応答を表す。
type Prediction struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// PaymentOrder は決済ゲートウェイで作成された注文を表す。
type PaymentOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

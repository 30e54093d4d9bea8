// Package news は農業ニュースRSSの取得と整形を提供する。
package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/agrimarket/internal/cache"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/resilience"
	"github.com/hitoshi/agrimarket/internal/security"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/html"
)

const (
	// MaxArticles はレスポンスに含める最大記事数。
	MaxArticles = 10
	userAgent   = "Mozilla/5.0 (compatible; NewsApp/1.0)"
)

// Recorder はニュース取得のメトリクス記録先。
type Recorder interface {
	RecordNewsFetch(result string)
	RecordOutboundLatency(target string, duration time.Duration)
}

// Service はニュースフィードの取得サービス。
// キャッシュ、サーキットブレーカー、固定記事へのフォールバックを組み合わせ、常に応答を返す。
type Service struct {
	client    *http.Client
	feedURL   string
	maxSize   int64
	cache     cache.NewsCache
	breaker   *gobreaker.CircuitBreaker[*model.NewsFeed]
	sanitizer security.Sanitizer
	recorder  Recorder
	now       func() time.Time
}

// NewService はServiceを生成する。clientには外部専用のクライアントを渡すこと。
func NewService(
	client *http.Client,
	feedURL string,
	maxSize int64,
	newsCache cache.NewsCache,
	sanitizer security.Sanitizer,
	recorder Recorder,
) *Service {
	if newsCache == nil {
		newsCache = cache.NoopNewsCache{}
	}
	return &Service{
		client:    client,
		feedURL:   feedURL,
		maxSize:   maxSize,
		cache:     newsCache,
		breaker:   resilience.NewBreaker[*model.NewsFeed]("news", resilience.DefaultBreakerSettings()),
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Latest は最新のニュースを返す。取得に失敗した場合は固定記事を返す。
func (s *Service) Latest(ctx context.Context) *model.NewsFeed {
	if feed, err := s.cache.Get(ctx, s.feedURL); err == nil {
		s.record("cache")
		return feed
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("ニュースキャッシュの読み込みに失敗しました", slog.String("error", err.Error()))
	}

	feed, err := s.breaker.Execute(func() (*model.NewsFeed, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		slog.Warn("ニュースの取得に失敗したため固定記事を返します",
			slog.String("feed_url", s.feedURL),
			slog.Bool("breaker_open", resilience.IsOpen(err)),
			slog.String("error", err.Error()),
		)
		s.record("fallback")
		return Fallback(s.now())
	}

	if err := s.cache.Set(ctx, s.feedURL, feed); err != nil {
		slog.Warn("ニュースキャッシュの書き込みに失敗しました", slog.String("error", err.Error()))
	}
	s.record("ok")
	return feed
}

func (s *Service) fetch(ctx context.Context) (*model.NewsFeed, error) {
	start := time.Now()
	defer func() {
		if s.recorder != nil {
			s.recorder.RecordOutboundLatency("news", time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み込みに失敗: %w", err)
	}
	if int64(len(body)) > s.maxSize {
		return nil, fmt.Errorf("レスポンスサイズが上限を超えています: > %d bytes", s.maxSize)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	articles := s.toArticles(parsed.Items)
	if len(articles) == 0 {
		return nil, errors.New("フィードに有効な記事がありません")
	}
	return &model.NewsFeed{
		Status:       "ok",
		Articles:     articles,
		TotalResults: len(articles),
	}, nil
}

// toArticles はタイトル・概要・リンクが揃った記事を先頭から最大MaxArticles件変換する。
func (s *Service) toArticles(items []*gofeed.Item) []model.NewsArticle {
	articles := []model.NewsArticle{}
	for _, item := range items {
		if len(articles) >= MaxArticles {
			break
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		description := s.sanitizer.StripTags(item.Description)
		if title == "" || link == "" || description == "" {
			continue
		}

		published := s.now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}

		articles = append(articles, model.NewsArticle{
			Title:       title,
			Description: description,
			URL:         link,
			URLToImage:  imageFor(item),
			PublishedAt: published,
		})
	}
	return articles
}

// imageFor は media:content、フィードの画像、概要中の最初のimgの順に画像を探す。
func imageFor(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if u := firstImageSrc(item.Description); u != "" {
		return u
	}
	return PlaceholderImage
}

// firstImageSrc はHTML断片から最初のimgタグのsrcを返す。
func firstImageSrc(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			if tok.Data != "img" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "src" && strings.HasPrefix(attr.Val, "http") {
					return attr.Val
				}
			}
		}
	}
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordNewsFetch(result)
	}
}

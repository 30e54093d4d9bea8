// Package security はHTML無害化と外部URLへのアクセス制限を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は利用者や外部フィードから来たHTMLを無害化する。
type Sanitizer interface {
	// SanitizeDescription は商品説明を簡単な書式タグだけに絞り込む。
	SanitizeDescription(raw string) string

	// StripTags はすべてのタグを除去し、空白を詰めたプレーンテキストを返す。
	StripTags(raw string) string
}

type sanitizer struct {
	description *bluemonday.Policy
	strict      *bluemonday.Policy
}

// NewSanitizer はSanitizerを生成する。
//   - 商品説明: p, br, ul, ol, li, strong, em のみ許可（属性なし）
//   - ニュース概要: StrictPolicy（全タグ除去）
func NewSanitizer() Sanitizer {
	d := bluemonday.NewPolicy()
	d.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")

	return &sanitizer{
		description: d,
		strict:      bluemonday.StrictPolicy(),
	}
}

func (s *sanitizer) SanitizeDescription(raw string) string {
	return strings.TrimSpace(s.description.Sanitize(raw))
}

func (s *sanitizer) StripTags(raw string) string {
	// StrictPolicyは実体参照をエスケープしたまま返すので戻す
	text := html.UnescapeString(s.strict.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

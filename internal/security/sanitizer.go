// Package security はカタログ取り込み時の安全対策を提供する。
//
// 商品説明のHTMLサニタイズと、外部URL取得時のSSRF防止を扱う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer は商品説明のHTMLを許可リストで無害化する。
// 生成後は読み取り専用のため並行利用できる。
type DescriptionSanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerを生成する。
// 許可タグ: p, br, ul, ol, li, strong, em, b, i, span
// リンクや画像は商品説明には不要なので残さない。
func NewDescriptionSanitizer() *DescriptionSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i", "span",
	)

	return &DescriptionSanitizer{
		rich:  p,
		plain: bluemonday.StrictPolicy(),
	}
}

// Sanitize は説明文HTMLを無害化し、前後の空白を取り除く。
func (s *DescriptionSanitizer) Sanitize(rawHTML string) string {
	return strings.TrimSpace(s.rich.Sanitize(rawHTML))
}

// PlainText はタグをすべて除去し、空白を1つに詰めたテキストを返す。
// 商品名や価格表記など、タグを含んではならない値に使う。
func (s *DescriptionSanitizer) PlainText(raw string) string {
	stripped := html.UnescapeString(s.plain.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}

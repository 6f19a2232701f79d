package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/storefront/internal/model"
)

var (
	firstNumber = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	// idUnsafe はURLパスの1セグメントにそのまま置けない文字の並び。
	idUnsafe = regexp.MustCompile(`[^A-Za-z0-9._~-]+`)
)

// ParseFeed はRSS/Atomの商品フィードから商品を抽出する。1記事が1商品になる。
//
//   - id: GUID → リンク → タイトルのスラッグ（URL形式のGUIDやリンクはスラッグ化する）
//   - price: 拡張要素price（g:price等） → タイトル中の最初の数値
//   - img_src: 記事の画像 → 画像タイプのenclosure
func ParseFeed(body []byte) ([]model.Product, error) {
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse product feed: %w", err)
	}

	products := make([]model.Product, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		products = append(products, productFromFeedItem(item))
	}
	return products, nil
}

// LooksLikeFeed は本文の先頭がRSS/Atom/RDFかどうかを判定する。
func LooksLikeFeed(body []byte) bool {
	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	prefix := strings.ToLower(string(head))
	if strings.Contains(prefix, "<rss") || strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	return strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom")
}

func productFromFeedItem(item *gofeed.Item) model.Product {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = DefaultProductTitle
	}

	p := model.Product{
		ID:          feedProductID(item.GUID),
		Title:       title,
		Link:        item.Link,
		Description: item.Description,
	}
	if p.ID == "" {
		p.ID = feedProductID(item.Link)
	}
	if p.ID == "" {
		p.ID = slug(title)
	}

	if v, ok := extensionValue(item, "price"); ok {
		p.Price = parsePriceText(v)
	} else {
		p.Price = parsePriceText(title)
	}

	if item.Image != nil && item.Image.URL != "" {
		p.ImgSrc = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				p.ImgSrc = enc.URL
				break
			}
		}
	}
	return p
}

// feedProductID はGUIDやリンクを商品ページのパスに使えるIDに変換する。
// スキームを除き、URLセグメントに使えない文字の並びを"-"に置き換える。
func feedProductID(raw string) string {
	raw = strings.TrimSpace(raw)
	if _, rest, ok := strings.Cut(raw, "://"); ok {
		raw = rest
	}
	return strings.Trim(idUnsafe.ReplaceAllString(raw, "-"), "-.")
}

// extensionValue は名前空間を問わず指定名の拡張要素の値を返す。
func extensionValue(item *gofeed.Item, name string) (string, bool) {
	for _, elems := range item.Extensions {
		for _, ext := range elems[name] {
			if v := strings.TrimSpace(ext.Value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// parsePriceText は"1,299.00 INR"のような表記から最初の数値を取り出す。
func parsePriceText(s string) float64 {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	return model.ParseNumber(strings.ReplaceAll(m, ",", ""))
}

package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/storefront/internal/model"
)

// 商品カードから値を取れない場合の既定値
const (
	DefaultProductID    = "unknown"
	DefaultProductTitle = "Item"
)

// ParseListing は一覧ページの.productカードから商品を抽出する。
//
//   - id: カードのdata-id（なければ"unknown"）
//   - price: カードのdata-price（数値でなければ0）
//   - title: h3のテキスト（なければ"Item"）
//   - img_src: 最初のimgのsrc
//   - link: .view-btnのdata-link、またはカード内の最初のリンク
func ParseListing(r io.Reader) ([]model.Product, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing html: %w", err)
	}

	products := make([]model.Product, 0)
	doc.Find(".product").Each(func(_ int, card *goquery.Selection) {
		products = append(products, productFromCard(card))
	})
	return products, nil
}

// HasProductCards は一覧ページ形式かどうかを判定する。
func HasProductCards(doc *goquery.Document) bool {
	return doc.Find(".product").Length() > 0
}

func productFromCard(card *goquery.Selection) model.Product {
	p := model.Product{
		ID:    strings.TrimSpace(card.AttrOr("data-id", "")),
		Price: model.ParseNumber(card.AttrOr("data-price", "")),
		Title: strings.TrimSpace(card.Find("h3").First().Text()),
	}
	if p.ID == "" {
		p.ID = DefaultProductID
	}
	if p.Title == "" {
		p.Title = DefaultProductTitle
	}
	if img := card.Find("img").First(); img.Length() > 0 {
		p.ImgSrc = img.AttrOr("src", "")
	}
	if desc := card.Find(".description, p").First(); desc.Length() > 0 {
		if inner, err := desc.Html(); err == nil {
			p.Description = inner
		}
	}
	if link, ok := card.Find(".view-btn").First().Attr("data-link"); ok {
		p.Link = link
	} else if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		p.Link = href
	}
	return p
}

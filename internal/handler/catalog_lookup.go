package handler

import (
	"strings"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/model"
)

// ProductCatalog はハンドラーが参照する商品カタログ。
type ProductCatalog interface {
	All() []model.Product
	Get(id string) (model.Product, bool)
}

// resolveLineItem はカート追加の入力を決める。
// カタログに存在するIDはカタログの値を使い、存在しない場合は送信値をそのまま使う。
// カート行はカタログと照合しないため、未知のIDでも追加できる。
func resolveLineItem(products ProductCatalog, submitted model.CartLineItem) model.CartLineItem {
	submitted.ID = strings.TrimSpace(submitted.ID)
	if products != nil && submitted.ID != "" {
		if p, ok := products.Get(submitted.ID); ok {
			return p.LineItem()
		}
	}
	if submitted.ID == "" {
		submitted.ID = catalog.DefaultProductID
	}
	if strings.TrimSpace(submitted.Title) == "" {
		submitted.Title = catalog.DefaultProductTitle
	}
	submitted.Qty = 0
	return submitted
}

// Package catalog は店頭に並べる商品の一覧を保持し、
// YAMLファイル・HTMLページ・商品フィードからの取り込みを提供する。
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/hitoshi/storefront/internal/model"
)

//go:embed default.yaml
var defaultCatalog []byte

// Catalog は読み取り専用の商品レジストリ。生成後は並行に参照できる。
type Catalog struct {
	products []model.Product
	byID     map[string]int
}

// New はCatalogを生成する。IDが重複する商品は最初のものを採用する。
func New(products []model.Product) *Catalog {
	c := &Catalog{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Default は組み込みの商品一覧からCatalogを生成する。
func Default() (*Catalog, error) {
	products, err := DecodeYAML(bytes.NewReader(defaultCatalog))
	if err != nil {
		return nil, fmt.Errorf("failed to decode built-in catalog: %w", err)
	}
	return New(products), nil
}

// All は掲載順の商品一覧を返す。戻り値は呼び出し元で変更してよい。
func (c *Catalog) All() []model.Product {
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get はIDで商品を検索する。
func (c *Catalog) Get(id string) (model.Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return model.Product{}, false
	}
	return c.products[idx], true
}

// Len は商品数を返す。
func (c *Catalog) Len() int {
	return len(c.products)
}

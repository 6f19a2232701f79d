// Package model はドメインモデルを定義する。
package model

// Product はカタログに掲載される商品を表す。
// カート行は商品カタログと照合されないため、Productはカート追加時の入力元にすぎない。
type Product struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Price       float64 `yaml:"price" json:"price"`
	ImgSrc      string  `yaml:"img_src" json:"imgSrc"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"` // サニタイズ済みHTML
	Link        string  `yaml:"link,omitempty" json:"link,omitempty"`
}

// LineItem は商品をカート追加用の入力に変換する。数量は追加時に決まるため設定しない。
func (p Product) LineItem() CartLineItem {
	return CartLineItem{
		ID:     p.ID,
		Title:  p.Title,
		ImgSrc: p.ImgSrc,
		Price:  p.Price,
	}
}

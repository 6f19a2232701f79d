// Package cart はカートの数量調整ロジックとその永続化を提供する。
//
// engine.goの関数は純粋関数で、引数のスライスを変更せずに新しいスライスを返す。
// 商品IDは正規化済み文字列で比較し、同一IDの行は常に1行に統合される。
package cart

import (
	"math"

	"github.com/hitoshi/storefront/internal/model"
)

// Add は商品をカートに追加する。
// 同一IDの行があれば数量を1増やし（入力側の数量は無視する）、
// なければ数量1の行を末尾に追加する。
func Add(cart []model.CartLineItem, item model.CartLineItem) []model.CartLineItem {
	out := clone(cart)
	if idx := indexOf(out, item.ID); idx != -1 {
		out[idx].Qty = number(out[idx].Qty) + 1
		return out
	}
	return append(out, model.CartLineItem{
		ID:     item.ID,
		Title:  item.Title,
		Qty:    1,
		ImgSrc: item.ImgSrc,
		Price:  number(item.Price),
	})
}

// Remove は指定IDの行をすべて取り除く。
func Remove(cart []model.CartLineItem, id string) []model.CartLineItem {
	out := make([]model.CartLineItem, 0, len(cart))
	for _, line := range cart {
		if line.ID != id {
			out = append(out, line)
		}
	}
	return out
}

// ChangeQty は指定IDの行の数量にdeltaを加える。
// 結果が0以下になった行は削除する。IDが存在しない場合はカートをそのまま返し、found=falseとなる。
func ChangeQty(cart []model.CartLineItem, id string, delta float64) ([]model.CartLineItem, bool) {
	idx := indexOf(cart, id)
	if idx == -1 {
		return cart, false
	}

	out := clone(cart)
	out[idx].Qty = number(out[idx].Qty) + number(delta)
	if out[idx].Qty <= 0 {
		out = append(out[:idx], out[idx+1:]...)
	}
	return out, true
}

// Count は全行の数量の合計を返す。非数値は0として扱う。
func Count(cart []model.CartLineItem) int {
	var sum float64
	for _, line := range cart {
		sum += number(line.Qty)
	}
	return int(math.Trunc(sum))
}

// Subtotal は単価×数量の合計を返す。非数値は0として扱う。
func Subtotal(cart []model.CartLineItem) float64 {
	var sum float64
	for _, line := range cart {
		sum += line.LineTotal()
	}
	return sum
}

func indexOf(cart []model.CartLineItem, id string) int {
	for i, line := range cart {
		if line.ID == id {
			return i
		}
	}
	return -1
}

func clone(cart []model.CartLineItem) []model.CartLineItem {
	out := make([]model.CartLineItem, len(cart), len(cart)+1)
	copy(out, cart)
	return out
}

// number はNaN・無限大を0に丸める。
func number(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/model"
)

// PriceFormatter は金額の表示用文字列を作る。
type PriceFormatter interface {
	Format(v float64) string
}

// CartHandler はカートJSON APIのハンドラー。
type CartHandler struct {
	service   CartServiceInterface
	products  ProductCatalog
	formatter PriceFormatter
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface, products ProductCatalog, formatter PriceFormatter) *CartHandler {
	return &CartHandler{
		service:   service,
		products:  products,
		formatter: formatter,
	}
}

// cartResponse はカートのAPIレスポンス。
type cartResponse struct {
	Items           []model.CartLineItem `json:"items"`
	Count           int                  `json:"count"`
	Subtotal        float64              `json:"subtotal"`
	SubtotalDisplay string               `json:"subtotal_display"`
}

// changeQtyRequest は数量変更リクエストのボディ。
// deltaは数値・数値文字列を受け付ける。
type changeQtyRequest struct {
	Delta json.RawMessage `json:"delta"`
}

// GetCart は現在のカートを返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(h.service.Summary(r.Context(), scope).Items))
}

// AddItem は商品をカートに追加する。同じIDの行があれば数量を1増やす。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}

	var req model.CartLineItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, model.NewInvalidRequestError("body must be a JSON object"))
		return
	}

	updated := h.service.AddToCart(r.Context(), scope, resolveLineItem(h.products, req))
	writeJSON(w, http.StatusOK, h.toResponse(updated))
}

// RemoveItem はカート行を削除する。存在しないIDでもエラーにしない。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}
	updated := h.service.RemoveFromCart(r.Context(), scope, lineIDParam(r))
	writeJSON(w, http.StatusOK, h.toResponse(updated))
}

// ChangeQty はカート行の数量をdelta分変更する。
// 行が存在しない場合は404 CART_LINE_NOT_FOUNDを返す。
// PATCH /api/cart/items/{id}
func (h *CartHandler) ChangeQty(w http.ResponseWriter, r *http.Request) {
	scope, ok := visitorScope(w, r)
	if !ok {
		return
	}

	var req changeQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Delta) == 0 {
		writeServiceError(w, model.NewInvalidRequestError("delta is required"))
		return
	}

	id := lineIDParam(r)
	updated, found := h.service.ChangeQty(r.Context(), scope, id, model.CoerceNumber(req.Delta))
	if !found {
		writeServiceError(w, model.NewCartLineNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(updated))
}

func (h *CartHandler) toResponse(items []model.CartLineItem) cartResponse {
	if items == nil {
		items = []model.CartLineItem{}
	}
	summary := cart.Summarize(items)
	return cartResponse{
		Items:           summary.Items,
		Count:           summary.Count,
		Subtotal:        summary.Subtotal,
		SubtotalDisplay: h.formatter.Format(summary.Subtotal),
	}
}

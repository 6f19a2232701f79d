package cart

import (
	"context"
	"log/slog"

	"github.com/hitoshi/storefront/internal/model"
)

// Store はカートサービスが必要とするストレージ操作。storage.Adapterが実装する。
type Store interface {
	ReadCart(ctx context.Context, scope string) []model.CartLineItem
	WriteCart(ctx context.Context, scope string, cart []model.CartLineItem)
	WithScopeLock(scope string, fn func())
}

// MetricsRecorder はカート操作を記録するインターフェース。
type MetricsRecorder interface {
	RecordCartMutation(op string)
}

// 操作名（メトリクスのラベル値）
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpChange = "change_qty"
)

// Summary はカートの表示用集計。
type Summary struct {
	Items    []model.CartLineItem
	Count    int
	Subtotal float64
}

// Service はカートの読み取り・変更・保存を1操作として提供する。
// 同一スコープの操作はStore.WithScopeLockで直列化される。
type Service struct {
	store   Store
	metrics MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(store Store, metrics MetricsRecorder) *Service {
	return &Service{store: store, metrics: metrics}
}

// Cart は現在のカートを返す。
func (s *Service) Cart(ctx context.Context, scope string) []model.CartLineItem {
	return s.store.ReadCart(ctx, scope)
}

// Summary は現在のカートと集計値を返す。
func (s *Service) Summary(ctx context.Context, scope string) Summary {
	return Summarize(s.store.ReadCart(ctx, scope))
}

// AddToCart は商品を追加し、更新後のカートを返す。
func (s *Service) AddToCart(ctx context.Context, scope string, item model.CartLineItem) []model.CartLineItem {
	var updated []model.CartLineItem
	s.store.WithScopeLock(scope, func() {
		updated = Add(s.store.ReadCart(ctx, scope), item)
		s.store.WriteCart(ctx, scope, updated)
	})
	s.record(OpAdd)
	slog.Debug("cart item added",
		slog.String("scope", scope),
		slog.String("item_id", item.ID),
	)
	return updated
}

// RemoveFromCart は指定IDの行を削除し、更新後のカートを返す。
func (s *Service) RemoveFromCart(ctx context.Context, scope, id string) []model.CartLineItem {
	var updated []model.CartLineItem
	s.store.WithScopeLock(scope, func() {
		updated = Remove(s.store.ReadCart(ctx, scope), id)
		s.store.WriteCart(ctx, scope, updated)
	})
	s.record(OpRemove)
	return updated
}

// ChangeQty は指定IDの行の数量を変更し、更新後のカートを返す。
// IDがカートに存在しない場合は保存せずにfound=falseを返す。
func (s *Service) ChangeQty(ctx context.Context, scope, id string, delta float64) ([]model.CartLineItem, bool) {
	var (
		updated []model.CartLineItem
		found   bool
	)
	s.store.WithScopeLock(scope, func() {
		updated, found = ChangeQty(s.store.ReadCart(ctx, scope), id, delta)
		if found {
			s.store.WriteCart(ctx, scope, updated)
		}
	})
	if found {
		s.record(OpChange)
	}
	return updated, found
}

// Summarize はカートから表示用集計を作る。
func Summarize(items []model.CartLineItem) Summary {
	return Summary{
		Items:    items,
		Count:    Count(items),
		Subtotal: Subtotal(items),
	}
}

func (s *Service) record(op string) {
	if s.metrics != nil {
		s.metrics.RecordCartMutation(op)
	}
}

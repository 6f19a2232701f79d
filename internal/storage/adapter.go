// Package storage はカート・ユーザー一覧・セッションの3レコードを
// キーバリューストア上で型付きに読み書きするアダプタを提供する。
//
// アダプタは呼び出し元にエラーを返さない。キー欠落・バックエンドエラー・
// JSON不正・形状不一致はすべて空のデフォルト値（空スライスまたはnil）に変換し、
// WARNログとObserverへの記録のみを行う。
package storage

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
)

// レコードキー。ブラウザ版と同じキー名を使う。
const (
	CartKey    = "gargCart"
	UsersKey   = "gargUsers"
	SessionKey = "gargSession"
)

// フォールバック理由
const (
	ReasonBackend = "backend_error"
	ReasonParse   = "parse_error"
	ReasonShape   = "shape_error"
)

// lockStripes はスコープ単位の排他に使うミューテックスの本数。
const lockStripes = 64

// Observer はフォールバックや書き込み失敗を記録するインターフェース。
// metrics.Collectorが実装する。
type Observer interface {
	RecordStorageFallback(record, reason string)
	RecordStorageWriteFailure(record string)
}

type nopObserver struct{}

func (nopObserver) RecordStorageFallback(string, string) {}
func (nopObserver) RecordStorageWriteFailure(string)     {}

// Adapter は3レコードの型付き読み書きを提供する。
type Adapter struct {
	store  repository.KVStore
	obs    Observer
	logger *slog.Logger
	locks  [lockStripes]sync.Mutex
}

// New はAdapterを生成する。obsがnilの場合は記録しない。
func New(store repository.KVStore, obs Observer, logger *slog.Logger) *Adapter {
	if obs == nil {
		obs = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, obs: obs, logger: logger}
}

// WithScopeLock は同一スコープに対する読み取り・変更・保存の一連の処理を直列化する。
// 異なるスコープ同士はストライプが衝突しない限り並行に実行される。
func (a *Adapter) WithScopeLock(scope string, fn func()) {
	mu := &a.locks[stripe(scope)]
	mu.Lock()
	defer mu.Unlock()
	fn()
}

// ReadCart はカートを読み込む。読み込めない場合は空スライスを返す。
func (a *Adapter) ReadCart(ctx context.Context, scope string) []model.CartLineItem {
	items := readList[model.CartLineItem](a, ctx, scope, CartKey)
	if items == nil {
		return []model.CartLineItem{}
	}
	return items
}

// WriteCart はカート全体を上書き保存する。
func (a *Adapter) WriteCart(ctx context.Context, scope string, cart []model.CartLineItem) {
	if cart == nil {
		cart = []model.CartLineItem{}
	}
	a.write(ctx, scope, CartKey, cart)
}

// ReadUsers はユーザー一覧を読み込む。読み込めない場合は空スライスを返す。
func (a *Adapter) ReadUsers(ctx context.Context, scope string) []model.User {
	users := readList[model.User](a, ctx, scope, UsersKey)
	if users == nil {
		return []model.User{}
	}
	return users
}

// WriteUsers はユーザー一覧全体を上書き保存する。
func (a *Adapter) WriteUsers(ctx context.Context, scope string, users []model.User) {
	if users == nil {
		users = []model.User{}
	}
	a.write(ctx, scope, UsersKey, users)
}

// ReadSession はセッションを読み込む。未ログインまたは読み込めない場合はnilを返す。
func (a *Adapter) ReadSession(ctx context.Context, scope string) *model.Session {
	raw, ok := a.readRaw(ctx, scope, SessionKey)
	if !ok {
		return nil
	}

	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		a.fallback(scope, SessionKey, ReasonParse, err)
		return nil
	}
	if probe == nil {
		return nil
	}
	if _, isObject := probe.(map[string]any); !isObject {
		a.fallback(scope, SessionKey, ReasonShape, nil)
		return nil
	}

	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		a.fallback(scope, SessionKey, ReasonParse, err)
		return nil
	}
	return &session
}

// WriteSession はセッションを保存する。
func (a *Adapter) WriteSession(ctx context.Context, scope string, session model.Session) {
	a.write(ctx, scope, SessionKey, session)
}

// ClearSession はセッションレコードを削除する。
func (a *Adapter) ClearSession(ctx context.Context, scope string) {
	if err := a.store.Delete(ctx, scope, SessionKey); err != nil {
		a.obs.RecordStorageWriteFailure(SessionKey)
		a.logger.Warn("failed to clear storage record",
			slog.String("scope", scope),
			slog.String("record", SessionKey),
			slog.String("error", err.Error()),
		)
	}
}

// readList はJSON配列のレコードを読み込む。
// 配列以外の値は形状不一致として空扱い、オブジェクト以外の要素は読み飛ばす。
func readList[T any](a *Adapter, ctx context.Context, scope, key string) []T {
	raw, ok := a.readRaw(ctx, scope, key)
	if !ok {
		return nil
	}

	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		a.fallback(scope, key, ReasonParse, err)
		return nil
	}
	elems, isList := probe.([]any)
	if !isList {
		a.fallback(scope, key, ReasonShape, nil)
		return nil
	}

	var rawElems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rawElems); err != nil {
		a.fallback(scope, key, ReasonParse, err)
		return nil
	}

	out := make([]T, 0, len(elems))
	dropped := 0
	for _, elem := range rawElems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			dropped++
			continue
		}
		out = append(out, v)
	}
	if dropped > 0 {
		a.logger.Warn("dropped malformed list elements",
			slog.String("scope", scope),
			slog.String("record", key),
			slog.Int("dropped", dropped),
		)
	}
	return out
}

// readRaw は生の文字列値を取得する。キー欠落・空文字列・バックエンドエラーはok=false。
func (a *Adapter) readRaw(ctx context.Context, scope, key string) (string, bool) {
	raw, found, err := a.store.Get(ctx, scope, key)
	if err != nil {
		a.fallback(scope, key, ReasonBackend, err)
		return "", false
	}
	if !found || raw == "" {
		return "", false
	}
	return raw, true
}

func (a *Adapter) write(ctx context.Context, scope, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.obs.RecordStorageWriteFailure(key)
		a.logger.Warn("failed to encode storage record",
			slog.String("scope", scope),
			slog.String("record", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := a.store.Set(ctx, scope, key, string(data)); err != nil {
		a.obs.RecordStorageWriteFailure(key)
		a.logger.Warn("failed to write storage record",
			slog.String("scope", scope),
			slog.String("record", key),
			slog.String("error", err.Error()),
		)
	}
}

func (a *Adapter) fallback(scope, key, reason string, err error) {
	a.obs.RecordStorageFallback(key, reason)
	attrs := []any{
		slog.String("scope", scope),
		slog.String("record", key),
		slog.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	a.logger.Warn("storage record fell back to default", attrs...)
}

func stripe(scope string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(scope))
	return h.Sum32() % lockStripes
}

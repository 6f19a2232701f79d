// Package repository はキーバリューストアの永続化インターフェースと実装を提供する。
//
// ストアはスコープ（訪問者ごとのブラウザストレージに相当）とキーの組で
// 文字列値を保持する。値の解釈は上位のstorageパッケージが行う。
package repository

import (
	"context"
	"time"
)

// KVStore はスコープ付きキーバリューストアの永続化インターフェース。
type KVStore interface {
	// Get は値を取得する。キーが存在しない場合はfound=falseを返す。
	Get(ctx context.Context, scope, key string) (value string, found bool, err error)

	// Set は値を無条件に上書き保存する。
	Set(ctx context.Context, scope, key, value string) error

	// Delete はキーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, scope, key string) error
}

// ScopePurger は一定期間更新のないスコープを一括削除するインターフェース。
// TTLで自然失効するバックエンド（Redis）は実装しない。
type ScopePurger interface {
	// PurgeIdleScopes はolderThanより前に最終更新されたスコープの全レコードを削除し、
	// 削除したレコード数を返す。
	PurgeIdleScopes(ctx context.Context, olderThan time.Time) (int64, error)
}

// Pinger はバックエンドの疎通確認インターフェース。ヘルスチェックで使用する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

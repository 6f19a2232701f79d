package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresKVStore はPostgreSQLのkv_recordsテーブルを使用したキーバリューストア。
// (scope, key)を主キーとし、書き込みのたびにupdated_atを更新する。
type PostgresKVStore struct {
	db *sql.DB
}

// NewPostgresKVStore はPostgresKVStoreを生成する。
func NewPostgresKVStore(db *sql.DB) *PostgresKVStore {
	return &PostgresKVStore{db: db}
}

// Get は値を取得する。
func (r *PostgresKVStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_records WHERE scope = $1 AND key = $2`,
		scope, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get kv record: %w", err)
	}
	return value, true, nil
}

// Set は値をUPSERTする。
func (r *PostgresKVStore) Set(ctx context.Context, scope, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_records (scope, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (scope, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set kv record: %w", err)
	}
	return nil
}

// Delete はキーを削除する。
func (r *PostgresKVStore) Delete(ctx context.Context, scope, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_records WHERE scope = $1 AND key = $2`,
		scope, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete kv record: %w", err)
	}
	return nil
}

// PurgeIdleScopes はolderThan以降に一度も更新されていないスコープの全レコードを削除する。
func (r *PostgresKVStore) PurgeIdleScopes(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_records
		 WHERE scope IN (
		     SELECT scope FROM kv_records
		     GROUP BY scope
		     HAVING max(updated_at) < $1
		 )`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle scopes: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// PingContext はDB接続を確認する。
func (r *PostgresKVStore) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// compile-time interface check
var (
	_ KVStore     = (*PostgresKVStore)(nil)
	_ ScopePurger = (*PostgresKVStore)(nil)
	_ Pinger      = (*PostgresKVStore)(nil)
)

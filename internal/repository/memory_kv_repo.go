package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// MemoryKVStore はプロセス内メモリを使用したキーバリューストア。
// テストおよびSTORE_BACKEND=memoryでの起動に使用する。
type MemoryKVStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string]memoryEntry
	now    func() time.Time
}

// NewMemoryKVStore はMemoryKVStoreを生成する。
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		scopes: make(map[string]map[string]memoryEntry),
		now:    time.Now,
	}
}

// Get は値を取得する。
func (s *MemoryKVStore) Get(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.scopes[scope][key]
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set は値を上書き保存する。
func (s *MemoryKVStore) Set(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.scopes[scope]
	if !ok {
		records = make(map[string]memoryEntry)
		s.scopes[scope] = records
	}
	records[key] = memoryEntry{value: value, updatedAt: s.now()}
	return nil
}

// Delete はキーを削除する。スコープが空になった場合はスコープごと削除する。
func (s *MemoryKVStore) Delete(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	delete(records, key)
	if len(records) == 0 {
		delete(s.scopes, scope)
	}
	return nil
}

// PurgeIdleScopes は全レコードの最終更新がolderThanより前のスコープを削除する。
func (s *MemoryKVStore) PurgeIdleScopes(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for scope, records := range s.scopes {
		idle := true
		for _, entry := range records {
			if !entry.updatedAt.Before(olderThan) {
				idle = false
				break
			}
		}
		if idle {
			deleted += int64(len(records))
			delete(s.scopes, scope)
		}
	}
	return deleted, nil
}

// PingContext は常に成功する。
func (s *MemoryKVStore) PingContext(_ context.Context) error {
	return nil
}

// compile-time interface check
var (
	_ KVStore     = (*MemoryKVStore)(nil)
	_ ScopePurger = (*MemoryKVStore)(nil)
	_ Pinger      = (*MemoryKVStore)(nil)
)

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/repository"
)

// storeBackend はSTORE_BACKENDに応じて開いたストアとその付随機能をまとめる。
type storeBackend struct {
	kv     repository.KVStore
	purger repository.ScopePurger // TTLで期限切れになるバックエンドではnil
	pinger repository.Pinger
	close  func() error
}

// Close はバックエンドの接続を閉じる。
func (b *storeBackend) Close() {
	if b.close == nil {
		return
	}
	if err := b.close(); err != nil {
		slog.Warn("failed to close store backend", slog.String("error", err.Error()))
	}
}

// openStore は設定に従ってキーバリューストアを開き、疎通を確認する。
func openStore(cfg *config.Config) (*storeBackend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		store := repository.NewPostgresKVStore(db)
		return &storeBackend{kv: store, purger: store, pinger: store, close: db.Close}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		store := repository.NewRedisKVStore(client, cfg.RedisScopeTTL)
		return &storeBackend{kv: store, pinger: store, close: client.Close}, nil

	case config.BackendMemory:
		store := repository.NewMemoryKVStore()
		return &storeBackend{kv: store, purger: store, pinger: store}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.StoreBackend)
	}
}

// loadCatalog は起動時のカタログを決定する。
// CATALOG_SOURCE_URLの取り込みに失敗した場合は組み込みカタログで起動を続け、
// CATALOG_FILEの読み込み失敗は起動エラーとする。
func loadCatalog(ctx context.Context, cfg *config.Config, importer *catalog.Importer) (*catalog.Catalog, error) {
	if cfg.CatalogSourceURL != "" {
		products, err := importer.Import(ctx, cfg.CatalogSourceURL)
		if err == nil && len(products) > 0 {
			return catalog.New(products), nil
		}
		reason := "no products found"
		if err != nil {
			reason = err.Error()
		}
		slog.Warn("catalog import failed, falling back to built-in catalog",
			slog.String("source", cfg.CatalogSourceURL),
			slog.String("reason", reason),
		)
		return catalog.Default()
	}

	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog file: %w", err)
		}
		return cat, nil
	}

	return catalog.Default()
}

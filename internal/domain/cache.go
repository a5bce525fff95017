package domain

import (
	"context"
	"fmt"
)

// Ключи кеша — единое место, чтобы не расползались по коду.
func CacheKeyImageMeta(id ImageID) string { return "imgmeta:" + id.String() }
func CacheKeyListVersion() string         { return "imglist:ver" }
func CacheKeyList(ver int64, limit, offset int) string {
	return fmt.Sprintf("imglist:%d:%d:%d", ver, limit, offset)
}

// Простой k/v интерфейс. Реализация — Redis.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttlSeconds int) error
	Del(ctx context.Context, keys ...string) error
	// Версия списка: инкремент при каждой успешной загрузке,
	// старые страницы листинга протухают сами по TTL.
	Incr(ctx context.Context, key string) (int64, error)
	Ping(context.Context) error
	Close()
}

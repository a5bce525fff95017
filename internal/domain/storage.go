package domain

import (
	"context"
	"io"
	"time"
)

// Элемент листинга бакета
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Хранилище бинарного контента (S3/MinIO)
type BlobStorage interface {
	// Идемпотентное создание бакета; безопасно звать из нескольких инстансов.
	EnsureBucket(ctx context.Context) error
	// Загрузка объекта под заданным ключом. Без внутренних ретраев.
	Put(ctx context.Context, key string, r io.Reader, size int64, mime string) error
	// Временная ссылка на скачивание без долгоживущих кредов.
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Удаление; отсутствие ключа — не ошибка.
	Delete(ctx context.Context, key string) error
	// Одна ограниченная страница листинга по префиксу.
	List(ctx context.Context, prefix string, max int) ([]ObjectInfo, error)
	Ping(ctx context.Context) error
}

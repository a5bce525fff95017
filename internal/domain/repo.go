package domain

import "context"

// Репозиторий метаданных изображений (Postgres)
type ImagesRepo interface {
	Close()
	Ping(context.Context) error

	// Точечный поиск по контент-хэшу; ErrNotFound если записи нет.
	ImageByHash(ctx context.Context, hash string) (Image, error)
	ImageByID(ctx context.Context, id ImageID) (Image, error)

	// Вставка новой записи. Уникальность content_hash/storage_key
	// гарантирует БД: при нарушении возвращается *ConflictError.
	CreateImage(ctx context.Context, img Image) (Image, error)

	// Список по created_at DESC; limit ограничен сверху в реализации.
	ImagesList(ctx context.Context, limit, offset int) ([]Image, error)
}

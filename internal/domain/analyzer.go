package domain

import "context"

// Внешний анализатор изображений (опционален).
// Возвращает короткую текстовую заметку о содержимом; ошибка анализа
// никогда не валит загрузку — coordinator лишь логирует её.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, data []byte, mime string) (string, error)
}

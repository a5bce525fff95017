package domain

import (
	"time"

	"github.com/google/uuid"
)

type ImageID = uuid.UUID

// Метаданные загруженного изображения (тело файла лежит в S3/MinIO)
type Image struct {
	ID               ImageID   `json:"id"`
	StorageKey       string    `json:"storage_key"`
	ContentHash      string    `json:"content_hash"` // sha256 hex — ключ дедупликации
	OriginalFilename string    `json:"original_filename"`
	MIME             string    `json:"mime_type"`
	SizeBytes        int64     `json:"size_bytes"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	AnalysisNote     *string   `json:"analysis_note,omitempty"` // заметка внешнего анализатора, может отсутствовать
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Метаданные из формы загрузки (обязательные поля по ТЗ)
type UploadMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Результат успешной загрузки: запись + временная ссылка на скачивание.
// DownloadURL может быть пустым, если presign не удался — запись при этом уже создана.
type UploadResult struct {
	Image       Image  `json:"image"`
	DownloadURL string `json:"download_url,omitempty"`
}

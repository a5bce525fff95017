package images

import (
	"context"
	"log"
	"time"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/service"
)

// Порт координатора загрузки — узкий, чтобы в тестах подменялся фейком
type UploadService interface {
	Upload(ctx context.Context, in service.UploadInput) (domain.UploadResult, error)
}

type Handler struct {
	Log     *log.Logger
	Svc     UploadService
	Repo    domain.ImagesRepo
	Storage domain.BlobStorage
	Cache   domain.Cache

	PresignTTL time.Duration
	ListTTL    int // секунд
	MetaTTL    int // секунд
}

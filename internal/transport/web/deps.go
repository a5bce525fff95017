package web

import (
	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/transport/web/v1/images"
)

type Deps struct {
	Uploader images.UploadService
	Repo     domain.ImagesRepo
	Storage  domain.BlobStorage
	Cache    domain.Cache
}

package images

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/transport/web/logx"
	"github.com/autotunecode/image-meta-api/internal/transport/web/mw"
	v1 "github.com/autotunecode/image-meta-api/internal/transport/web/v1"
)

// GetOne — GET /api/v1/images/{id}
func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	const op = "images.get_one"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad image id", err, "raw", r.PathValue("id"))
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	// метаданные — из кеша, если есть; presigned-ссылку не кешируем,
	// она каждый раз свежая
	var img domain.Image
	hit := false
	if b, err := h.Cache.Get(r.Context(), domain.CacheKeyImageMeta(id)); err == nil && len(b) > 0 {
		if err := json.Unmarshal(b, &img); err == nil {
			hit = true
		}
	}
	if !hit {
		img, err = h.Repo.ImageByID(r.Context(), id)
		if err != nil {
			logx.Error(h.Log, reqID, op, "lookup failed", err, "id", id)
			v1.WriteDomainError(w, r, err)
			return
		}
		if b, err := json.Marshal(img); err == nil {
			if err := h.Cache.Set(r.Context(), domain.CacheKeyImageMeta(id), b, h.MetaTTL); err != nil {
				logx.Warn(h.Log, reqID, op, "cache set failed", "err", err)
			}
		}
	}

	out := domain.UploadResult{Image: img}
	if dlURL, err := h.Storage.PresignedGet(r.Context(), img.StorageKey, h.PresignTTL); err != nil {
		logx.Warn(h.Log, reqID, op, "presign failed", "key", img.StorageKey, "err", err)
	} else {
		out.DownloadURL = dlURL
	}

	v1.WriteOKData(w, r, out)
}

package images

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/service"
	"github.com/autotunecode/image-meta-api/internal/transport/web/logx"
	"github.com/autotunecode/image-meta-api/internal/transport/web/mw"
	v1 "github.com/autotunecode/image-meta-api/internal/transport/web/v1"
)

// Upload — POST /api/v1/images
// multipart: image_file (файл), metadata (JSON-строка с title и description)
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "images.upload"
	reqID := mw.RequestIDFromCtx(r.Context())

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logx.Error(h.Log, reqID, op, "body too large", err, "limit", maxErr.Limit)
			v1.WriteDomainError(w, r, domain.ErrTooLarge)
			return
		}
		logx.Error(h.Log, reqID, op, "parse form", err)
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	metaRaw := r.FormValue("metadata")
	if metaRaw == "" {
		logx.Error(h.Log, reqID, op, "no metadata field", domain.ErrBadParams)
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}
	// лишние поля в metadata молча игнорируем
	var meta domain.UploadMeta
	if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil {
		logx.Error(h.Log, reqID, op, "metadata json", err)
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	file, hdr, err := r.FormFile("image_file")
	if err != nil {
		logx.Error(h.Log, reqID, op, "no image_file field", err)
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}
	defer file.Close()

	res, err := h.Svc.Upload(r.Context(), service.UploadInput{
		File:     file,
		Filename: hdr.Filename,
		MIME:     hdr.Header.Get("Content-Type"),
		Meta:     meta,
	})
	if err != nil {
		if dup, ok := domain.AsDuplicate(err); ok {
			logx.Info(h.Log, reqID, op, "duplicate", "existing_id", dup.Existing.ID)
			v1.WriteDuplicate(w, r, dup.Existing)
			return
		}
		logx.Error(h.Log, reqID, op, "upload failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "created",
		"id", res.Image.ID, "hash", res.Image.ContentHash, "size", res.Image.SizeBytes)
	v1.WriteCreated(w, r, res)
}

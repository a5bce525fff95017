package health

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/transport/web/logx"
	"github.com/autotunecode/image-meta-api/internal/transport/web/mw"
	v1 "github.com/autotunecode/image-meta-api/internal/transport/web/v1"
)

type Pinger interface {
	Ping(context.Context) error
}

type Handler struct {
	Log     *log.Logger
	DB      Pinger
	Cache   Pinger
	Storage Pinger
}

// Liveness — жив ли процесс, без походов в БД/кеш
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	v1.WriteOKData(w, r, "ok")
}

// Readiness — готовность: пингуем Postgres, Redis и S3
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	const op = "health.readiness"
	reqID := mw.RequestIDFromCtx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "db ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrMetaUnavailable)
		return
	}
	if err := h.Cache.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "cache ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}
	if err := h.Storage.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "storage ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrStorageUnavailable)
		return
	}

	v1.WriteOKData(w, r, "ready")
}

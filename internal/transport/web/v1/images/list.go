package images

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/transport/web/logx"
	"github.com/autotunecode/image-meta-api/internal/transport/web/mw"
	v1 "github.com/autotunecode/image-meta-api/internal/transport/web/v1"
)

// List — GET /api/v1/images?limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "images.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	limit := domain.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			offset = n
		}
	}
	// клампим до ключа кеша, чтобы limit=10000 и limit=100
	// не плодили разные записи одной и той же страницы
	limit, offset = domain.ClampListPage(limit, offset)

	// версионированный ключ: после каждой загрузки версия растёт,
	// устаревшие страницы дотухают по TTL сами
	ver := h.listVersion(r)
	ckey := domain.CacheKeyList(ver, limit, offset)
	if b, err := h.Cache.Get(r.Context(), ckey); err != nil {
		logx.Warn(h.Log, reqID, op, "cache get failed", "err", err)
	} else if b != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "private, max-age=60")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}

	imgs, err := h.Repo.ImagesList(r.Context(), limit, offset)
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	if imgs == nil {
		imgs = []domain.Image{}
	}

	env := domain.OkData(map[string]any{
		"images": imgs,
		"count":  len(imgs),
	})
	body, err := json.Marshal(env)
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	if err := h.Cache.Set(r.Context(), ckey, body, h.ListTTL); err != nil {
		logx.Warn(h.Log, reqID, op, "cache set failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) listVersion(r *http.Request) int64 {
	b, err := h.Cache.Get(r.Context(), domain.CacheKeyListVersion())
	if err != nil || len(b) == 0 {
		return 0
	}
	ver, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return ver
}

package web

import (
	"log"
	"net/http"

	"github.com/autotunecode/image-meta-api/internal/config"
	"github.com/autotunecode/image-meta-api/internal/transport/web/mw"
	"github.com/autotunecode/image-meta-api/internal/transport/web/v1/health"
	"github.com/autotunecode/image-meta-api/internal/transport/web/v1/images"
)

func newRouter(cfg *config.Config, hh *health.Handler, ih *images.Handler, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	// health — без API-ключа, его дергают пробы оркестратора
	mux.HandleFunc("GET /api/v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /api/v1/readyz", hh.Readiness)

	// images — только с общим секретом в X-API-Key
	key := cfg.APIKey
	maxBody := cfg.MaxUploadMB << 20
	mux.Handle("POST /api/v1/images",
		withAPIKey(key, limitBody(maxBody, ih.Upload)))
	mux.Handle("GET /api/v1/images", withAPIKey(key, http.HandlerFunc(ih.List)))
	mux.Handle("GET /api/v1/images/{id}", withAPIKey(key, http.HandlerFunc(ih.GetOne)))

	return mw.WithRequestID(mw.Logging(logger)(mux))
}

func withAPIKey(key string, h http.Handler) http.Handler {
	return mw.RequireAPIKey(key, h)
}

func limitBody(n int64, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	}
}

package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/autotunecode/image-meta-api/internal/config"
	"github.com/autotunecode/image-meta-api/internal/transport/web/v1/health"
	"github.com/autotunecode/image-meta-api/internal/transport/web/v1/images"
)

type Server struct {
	log    *log.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *log.Logger, cfg *config.Config, deps Deps) *Server {
	healthLog := log.New(logger.Writer(), logger.Prefix()+"[health] ", logger.Flags())
	imagesLog := log.New(logger.Writer(), logger.Prefix()+"[images] ", logger.Flags())

	healthHandler := &health.Handler{
		Log: healthLog, DB: deps.Repo, Cache: deps.Cache, Storage: deps.Storage,
	}
	imagesHandler := &images.Handler{
		Log:        imagesLog,
		Svc:        deps.Uploader,
		Repo:       deps.Repo,
		Storage:    deps.Storage,
		Cache:      deps.Cache,
		PresignTTL: time.Duration(cfg.PresignTTLSecs) * time.Second,
		ListTTL:    60,
		MetaTTL:    300,
	}

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           newRouter(cfg, healthHandler, imagesHandler, logger),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

func (ws *Server) Run() {
	ws.log.Printf("started on %s", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ws.log.Fatalf("error: %v", err)
	}
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Printf("forced to shutdown: %v", err)
	}
	ws.log.Println("exited gracefully")
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/retentions"
)

const (
	defaultOwnerHeader = "X-User-ID"
	shutdownTimeout    = 10 * time.Second
)

// Server exposes the retentions service over HTTP.
type Server struct {
	svc    *retentions.Service
	cfg    common.ServerConfig
	logger *slog.Logger
}

func NewServer(svc *retentions.Service, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if strings.TrimSpace(cfg.OwnerHeader) == "" {
		cfg.OwnerHeader = defaultOwnerHeader
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{svc: svc, cfg: cfg, logger: common.LoggerOrDefault(logger)}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", s.cfg.OwnerHeader},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireOwner)

		r.Route("/retentions", func(r chi.Router) {
			r.Post("/", s.submitRetention)
			r.Get("/", s.listRetentions)
			r.Get("/stream", s.streamRetentions)
			r.Get("/export.xlsx", s.exportXLSX)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getRetention)
				r.Delete("/", s.deleteRetention)
				r.Get("/actions", s.listActions)
				r.Post("/actions/{event}", s.applyAction)
				r.Patch("/status", s.changeStatus)
				r.Get("/share", s.shareRetention)
			})
		})

		r.Route("/providers/emails", func(r chi.Router) {
			r.Get("/", s.listProviderEmails)
			r.Put("/", s.saveProviderEmails)
			r.Post("/import", s.importProviderEmails)
			r.Get("/{ruc}", s.lookupProviderEmail)
		})
	})
	return r
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.listen", "addr", s.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "http listen")
	case <-ctx.Done():
	}

	s.logger.Info("http.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "http shutdown")
	}
	return nil
}

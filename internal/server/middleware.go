package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vinochelo/extractor/internal/common"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqID := middleware.GetReqID(r.Context())
		ctx := common.WithRequestID(r.Context(), reqID)

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.Info("http.request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// requireOwner resolves the owner partition from the configured header.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(s.cfg.OwnerHeader))
		if owner == "" {
			s.writeError(w, r, common.NewAppError(common.CodeUnauthorized, "missing "+s.cfg.OwnerHeader+" header", nil))
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithOwnerID(r.Context(), owner)))
	})
}

package server

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
)

const maxCSVBody = 5 << 20

func (s *Server) listProviderEmails(w http.ResponseWriter, r *http.Request) {
	all, err := s.svc.ProviderEmails(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) saveProviderEmails(w http.ResponseWriter, r *http.Request) {
	var mapping map[string]string
	if err := decodeJSON(r, &mapping); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.ImportProviderEmails(r.Context(), mapping); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	ValidRows   int `json:"validRows"`
	SkippedRows int `json:"skippedRows"`
}

func (s *Server) importProviderEmails(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != constants.MimeCSV && mediaType != "text/plain" {
			s.writeError(w, r, common.InvalidInputf("se espera un archivo CSV (recibido %q)", mediaType))
			return
		}
	}
	body := http.MaxBytesReader(w, r.Body, maxCSVBody)
	res, err := s.svc.ImportProviderEmailsCSV(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{ValidRows: res.ValidRows, SkippedRows: res.SkippedRows})
}

type lookupResponse struct {
	RUC   string `json:"ruc"`
	Email string `json:"email"`
}

func (s *Server) lookupProviderEmail(w http.ResponseWriter, r *http.Request) {
	ruc := strings.TrimSpace(chi.URLParam(r, "ruc"))
	writeJSON(w, http.StatusOK, lookupResponse{RUC: ruc, Email: s.svc.LookupProviderEmail(r.Context(), ruc)})
}

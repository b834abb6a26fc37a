package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/lifecycle"
	"github.com/vinochelo/extractor/internal/share"
)

func ownerOf(r *http.Request) string {
	return common.OwnerIDFromContext(r.Context())
}

func (s *Server) listRetentions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Snapshot(r.Context(), ownerOf(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []entity.RetentionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getRetention(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetRetention(r.Context(), ownerOf(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRetention(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRetention(r.Context(), ownerOf(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.svc.Actions(r.Context(), ownerOf(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) applyAction(w http.ResponseWriter, r *http.Request) {
	ev, ok := lifecycle.ParseEvent(chi.URLParam(r, "event"))
	if !ok {
		s.writeError(w, r, common.InvalidInputf("unknown action %q", chi.URLParam(r, "event")))
		return
	}
	rec, err := s.svc.ApplyAction(r.Context(), ownerOf(r), chi.URLParam(r, "id"), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type statusRequest struct {
	Estado string `json:"estado"`
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	estado, err := constants.ParseStatus(req.Estado)
	if err != nil {
		s.writeError(w, r, common.InvalidInputf("%v", err))
		return
	}
	if err := s.svc.ChangeStatus(r.Context(), ownerOf(r), chi.URLParam(r, "id"), estado); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shareResponse struct {
	share.EmailDraft
	Mailto    string        `json:"mailto"`
	Summary   string        `json:"summary"`
	Fields    []share.Field `json:"fields"`
	VerifyURL string        `json:"verifyUrl"`
}

func (s *Server) shareRetention(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	draft, err := s.svc.ShareDraft(r.Context(), ownerOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.svc.GetRetention(r.Context(), ownerOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		EmailDraft: draft,
		Mailto:     draft.MailtoURL(),
		Summary:    share.Summary(rec.RetentionData),
		Fields:     share.Fields(rec.RetentionData),
		VerifyURL:  share.VerifyURL,
	})
}

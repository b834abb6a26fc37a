package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

// streamRetentions pushes one server-sent "snapshot" event per history
// change until the client goes away.
func (s *Server) streamRetentions(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	snapshots, err := s.svc.WatchRetentions(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	for snap := range snapshots {
		event, payload := "snapshot", any(snap.Records)
		if snap.Err != nil {
			event = "error"
			payload = errorBody{Error: common.Code(snap.Err), Message: common.Message(snap.Err)}
		} else if snap.Records == nil {
			payload = []entity.RetentionRecord{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("http.stream.encode_failed", "owner", owner, "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", snap.Seq, event, data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

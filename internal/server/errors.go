package server

import (
	"encoding/json"
	"net/http"

	"github.com/vinochelo/extractor/internal/common"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(code string) int {
	switch code {
	case common.CodeInvalidInput:
		return http.StatusBadRequest
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeInvalidTransition:
		return http.StatusConflict
	case common.CodeExtractionFailure:
		return http.StatusUnprocessableEntity
	case common.CodeStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := common.Code(err)
	status := statusFor(code)
	msg := common.Message(err)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	level := s.logger.Warn
	if status >= http.StatusInternalServerError {
		level = s.logger.Error
	}
	level("http.error",
		"req_id", common.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"code", code,
		"status", status,
		"error", err,
	)
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.InvalidInputf("invalid JSON body: %v", err)
	}
	return nil
}

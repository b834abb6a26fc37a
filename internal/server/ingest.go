package server

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/retentions"
)

const (
	maxPDFBytes = constants.MaxPDFSizeMB << 20
	// A data URI is base64, so allow 4/3 of the PDF plus room for the JSON.
	maxSubmitBody = maxPDFBytes/3*4 + 1<<20
)

type submitRequest struct {
	PDFDataURI string `json:"pdfDataUri"`
	FileName   string `json:"fileName"`
}

type submitResponse struct {
	Record           entity.RetentionRecord `json:"record"`
	Duplicate        bool                   `json:"duplicate"`
	DuplicateMessage string                 `json:"duplicateMessage,omitempty"`
	Submission       entity.SubmissionKind  `json:"submission"`
}

// submitRetention accepts either a JSON data URI or a multipart "file" part.
func (s *Server) submitRetention(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBody)

	var (
		res retentions.SubmitResult
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		res, err = s.submitMultipart(r)
	} else {
		var req submitRequest
		if err = decodeJSON(r, &req); err == nil {
			res, err = s.svc.SubmitRetention(r.Context(), retentions.SubmitRequest{
				OwnerID:    ownerOf(r),
				PDFDataURI: req.PDFDataURI,
				FileName:   req.FileName,
			})
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, submitResponse{
		Record:           res.Record,
		Duplicate:        res.Duplicate,
		DuplicateMessage: res.DuplicateMessage,
		Submission:       res.Submission.Kind(),
	})
}

func (s *Server) submitMultipart(r *http.Request) (retentions.SubmitResult, error) {
	if err := r.ParseMultipartForm(maxPDFBytes); err != nil {
		return retentions.SubmitResult{}, common.InvalidInputf("invalid multipart body: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return retentions.SubmitResult{}, common.InvalidInputf("missing form field \"file\"")
	}
	defer file.Close()

	partType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if partType != constants.MimePDF {
		return retentions.SubmitResult{}, common.InvalidInputf("el archivo debe ser un PDF (recibido %q)", partType)
	}
	pdf, err := io.ReadAll(io.LimitReader(file, maxPDFBytes+1))
	if err != nil {
		return retentions.SubmitResult{}, common.InvalidInputf("read upload: %v", err)
	}
	if len(pdf) > maxPDFBytes {
		return retentions.SubmitResult{}, common.InvalidInputf("el archivo supera %d MB", constants.MaxPDFSizeMB)
	}
	name := strings.TrimSpace(filepath.Base(header.Filename))
	return s.svc.SubmitPDF(r.Context(), ownerOf(r), name, pdf)
}

package ingest

import (
	"context"

	"github.com/vinochelo/extractor/internal/retentions"
)

// Outcome classifies what happened to one inbox file.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnchanged means the same bytes were already handled for this owner.
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path     string
	Outcome  Outcome
	RecordID string
	Numero   string
	HashHex  string
	Message  string
	Err      string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Created    uint32
	Duplicates uint32
	Unchanged  uint32
	Failed     uint32
}

func (s *DirStats) add(r FileResult) {
	switch r.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeUnchanged:
		s.Unchanged++
	default:
		s.Failed++
	}
}

// Submitter registers one PDF for an owner.
type Submitter interface {
	SubmitPDF(ctx context.Context, ownerID, fileName string, pdf []byte) (retentions.SubmitResult, error)
}

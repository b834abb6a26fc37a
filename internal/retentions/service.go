package retentions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/dedup"
	"github.com/vinochelo/extractor/internal/directory"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/export"
	"github.com/vinochelo/extractor/internal/importer"
	"github.com/vinochelo/extractor/internal/lifecycle"
	"github.com/vinochelo/extractor/internal/live"
	"github.com/vinochelo/extractor/internal/llm"
	"github.com/vinochelo/extractor/internal/repository"
	"github.com/vinochelo/extractor/internal/share"
)

const (
	maxOwnerIDLength  = 128
	maxFileNameLength = 255
)

// Extractor turns a PDF data URI into retention fields.
type Extractor interface {
	Extract(ctx context.Context, pdfDataURI, fileName string) (entity.RetentionData, error)
}

// Service is the boundary every surface (HTTP, CLI, inbox) goes through.
type Service struct {
	extractor Extractor
	store     repository.RetentionStore
	hub       *live.Hub
	detector  *dedup.Detector
	lifecycle *lifecycle.Manager
	directory *directory.Directory
	exporter  *export.Service
	logger    *slog.Logger

	// registering serializes duplicate check and create per owner and number.
	registering *keyedMutex
}

// NewService wires the components around store. Writes made through the
// service are announced on hub.
func NewService(extractor Extractor, store repository.RetentionStore, hub *live.Hub, dir *directory.Directory, logger *slog.Logger) *Service {
	logger = common.LoggerOrDefault(logger)
	notifying := live.Wrap(store, hub)
	return &Service{
		extractor: extractor,
		store:     notifying,
		hub:       hub,
		detector:  dedup.NewDetector(notifying, logger),
		lifecycle: lifecycle.NewManager(notifying, logger),
		directory: dir,
		exporter:  export.NewService(notifying, dir.Lookup, nil, logger),
		logger:    logger,

		registering: newKeyedMutex(),
	}
}

// SubmitRequest is one PDF to register for OwnerID.
type SubmitRequest struct {
	OwnerID    string
	PDFDataURI string
	FileName   string
}

func (r SubmitRequest) validate() error {
	return common.NewValidator().
		Field("ownerId", r.OwnerID, common.Required, common.MaxLength(maxOwnerIDLength), common.NoControlChars).
		Field("pdfDataUri", r.PDFDataURI, common.Required).
		Field("fileName", r.FileName, common.MaxLength(maxFileNameLength), common.NoControlChars).
		Err()
}

// SubmitResult is the outcome of a submission. When Duplicate is true,
// Record is an unsaved preview with ID constants.PreviewID and no estado.
type SubmitResult struct {
	Record           entity.RetentionRecord `json:"record"`
	Duplicate        bool                   `json:"duplicate"`
	DuplicateMessage string                 `json:"duplicateMessage,omitempty"`
	Submission       entity.Submission      `json:"-"`
}

// SubmitRetention extracts, checks for duplicates and, only when the
// numeroRetencion is new for the owner, creates the record. Check and
// create run under one lock per owner and numeroRetencion, so concurrent
// submissions of the same number persist exactly one record.
func (s *Service) SubmitRetention(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	start := time.Now()
	reqID := uuid.NewString()
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.FileName = strings.TrimSpace(req.FileName)
	if err := req.validate(); err != nil {
		return SubmitResult{}, err
	}

	log := s.logger.With("req_id", reqID, "owner", req.OwnerID, "file", req.FileName)
	log.Info("retentions.submit.start")

	data, err := s.extractor.Extract(ctx, req.PDFDataURI, req.FileName)
	if err != nil {
		log.Error("retentions.submit.extract_failed", "error", err)
		return SubmitResult{}, fmt.Errorf("submit retention: %w", err)
	}

	unlock := s.registering.Lock(req.OwnerID + "\x00" + strings.TrimSpace(data.NumeroRetencion))
	defer unlock()

	check, err := s.detector.Check(ctx, req.OwnerID, data)
	if err != nil {
		log.Error("retentions.submit.dedup_failed", "error", err)
		return SubmitResult{}, fmt.Errorf("submit retention: %w", err)
	}
	if check.Duplicate {
		preview := entity.Preview{Data: data, FileName: req.FileName, ID: constants.PreviewID}
		log.Info("retentions.submit.duplicate",
			"numero_retencion", check.NumeroRetencion,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return SubmitResult{
			Record:           preview.Record(),
			Duplicate:        true,
			DuplicateMessage: check.Message(),
			Submission:       preview,
		}, nil
	}

	rec, err := s.store.Create(ctx, req.OwnerID, entity.NewRetention{
		Data:     data,
		FileName: req.FileName,
		Estado:   constants.InitialStatus,
	})
	if err != nil {
		log.Error("retentions.submit.create_failed", "error", err)
		return SubmitResult{}, fmt.Errorf("submit retention: %w", err)
	}

	log.Info("retentions.submit.ok",
		"id", rec.ID,
		"numero_retencion", rec.NumeroRetencion,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return SubmitResult{Record: rec, Submission: entity.Confirmed{Stored: rec}}, nil
}

// SubmitPDF is SubmitRetention for raw PDF bytes.
func (s *Service) SubmitPDF(ctx context.Context, ownerID, fileName string, pdf []byte) (SubmitResult, error) {
	if len(pdf) == 0 {
		return SubmitResult{}, common.InvalidInputf("el archivo PDF está vacío")
	}
	return s.SubmitRetention(ctx, SubmitRequest{
		OwnerID:    ownerID,
		PDFDataURI: llm.EncodePDFDataURI(pdf),
		FileName:   fileName,
	})
}

// Snapshot returns the owner's current history, newest first.
func (s *Service) Snapshot(ctx context.Context, ownerID string) ([]entity.RetentionRecord, error) {
	recs, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list retentions: %w", err)
	}
	return recs, nil
}

// ListRetentions subscribes onSnapshot to the owner's live history. The
// first snapshot arrives right away; later ones follow every change.
func (s *Service) ListRetentions(ownerID string, onSnapshot func(live.Snapshot)) (func(), error) {
	return s.hub.Subscribe(ownerID, onSnapshot)
}

// WatchRetentions is ListRetentions as a channel closed when ctx ends.
func (s *Service) WatchRetentions(ctx context.Context, ownerID string) (<-chan live.Snapshot, error) {
	return s.hub.Watch(ctx, ownerID)
}

// GetRetention returns one stored record.
func (s *Service) GetRetention(ctx context.Context, ownerID, id string) (entity.RetentionRecord, error) {
	return s.store.Get(ctx, ownerID, id)
}

// ChangeStatus moves record id to newStatus along a legal edge.
func (s *Service) ChangeStatus(ctx context.Context, ownerID, id string, newStatus constants.RetentionStatus) error {
	if _, err := s.lifecycle.ChangeStatus(ctx, ownerID, id, newStatus); err != nil {
		return fmt.Errorf("change status: %w", err)
	}
	return nil
}

// ApplyAction fires a lifecycle event on record id.
func (s *Service) ApplyAction(ctx context.Context, ownerID, id string, ev lifecycle.Event) (entity.RetentionRecord, error) {
	rec, err := s.lifecycle.Apply(ctx, ownerID, id, ev)
	if err != nil {
		return entity.RetentionRecord{}, fmt.Errorf("apply %s: %w", ev, err)
	}
	return rec, nil
}

// DeleteRetention removes record id. Deleting an absent id succeeds.
func (s *Service) DeleteRetention(ctx context.Context, ownerID, id string) error {
	if err := s.lifecycle.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete retention: %w", err)
	}
	return nil
}

// Actions lists the menu entries available for record id.
func (s *Service) Actions(ctx context.Context, ownerID, id string) ([]lifecycle.Action, error) {
	actions, err := s.lifecycle.ActionsFor(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	return actions, nil
}

// ImportProviderEmails replaces the provider directory with mapping.
func (s *Service) ImportProviderEmails(ctx context.Context, mapping map[string]string) error {
	if _, err := s.directory.Save(ctx, mapping); err != nil {
		return fmt.Errorf("import provider emails: %w", err)
	}
	return nil
}

// ImportProviderEmailsCSV parses a ruc,email CSV and replaces the directory
// with its rows.
func (s *Service) ImportProviderEmailsCSV(ctx context.Context, r io.Reader) (importer.Result, error) {
	res, err := importer.ParseProviderCSV(r)
	if err != nil {
		return importer.Result{}, fmt.Errorf("import provider emails: %w", err)
	}
	if err := s.ImportProviderEmails(ctx, res.Emails); err != nil {
		return importer.Result{}, err
	}
	s.logger.Info("retentions.providers.import.ok", "valid_rows", res.ValidRows, "skipped_rows", res.SkippedRows)
	return res, nil
}

// LookupProviderEmail returns the e-mail saved for ruc, or "".
func (s *Service) LookupProviderEmail(ctx context.Context, ruc string) string {
	return s.directory.Lookup(ctx, ruc)
}

// ProviderEmails returns the whole provider directory.
func (s *Service) ProviderEmails(ctx context.Context) (map[string]string, error) {
	all, err := s.directory.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider emails: %w", err)
	}
	return all, nil
}

// ShareDraft builds the void request e-mail for record id, addressed to the
// provider when the directory knows it.
func (s *Service) ShareDraft(ctx context.Context, ownerID, id string) (share.EmailDraft, error) {
	rec, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return share.EmailDraft{}, fmt.Errorf("share draft: %w", err)
	}
	return share.NewEmailDraft(rec.RetentionData, s.directory.Lookup(ctx, rec.RucProveedor)), nil
}

// ExportXLSX renders the owner's history as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	out, err := s.exporter.ExportXLSX(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("export xlsx: %w", err)
	}
	return out, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/llm"
)

const defaultTimeout = 45 * time.Second

// Extractor turns a PDF data URI into validated RetentionData. It holds no
// per-document state and is safe for concurrent use.
type Extractor struct {
	fields  llm.FieldExtractor
	logger  *slog.Logger
	timeout time.Duration
	limiter *rate.Limiter
	maxSize int
}

type Option func(*Extractor)

// WithTimeout bounds a single extraction, rate limit wait included.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRateLimit allows at most perMinute model calls per minute with a burst of one.
func WithRateLimit(perMinute int) Option {
	return func(e *Extractor) {
		if perMinute > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithMaxSizeMB caps the decoded PDF size.
func WithMaxSizeMB(mb int) Option {
	return func(e *Extractor) {
		if mb > 0 {
			e.maxSize = mb << 20
		}
	}
}

func New(fields llm.FieldExtractor, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		fields:  fields,
		logger:  common.LoggerOrDefault(logger),
		timeout: defaultTimeout,
		maxSize: constants.MaxPDFSizeMB << 20,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract validates the payload shape, calls the model and validates its
// answer. Shape problems are InvalidInput and nothing is sent to the model;
// everything after that is ExtractionFailure.
func (e *Extractor) Extract(ctx context.Context, pdfDataURI, fileName string) (entity.RetentionData, error) {
	if err := llm.ValidateExtractionInput(pdfDataURI, fileName); err != nil {
		return entity.RetentionData{}, common.NewAppError(common.CodeInvalidInput,
			"el archivo debe ser un PDF codificado como data:application/pdf;base64", err)
	}

	_, body, err := llm.ParseDataURI(pdfDataURI)
	if err != nil {
		return entity.RetentionData{}, common.ExtractionFailure("malformed PDF payload", err)
	}
	if base64.StdEncoding.DecodedLen(len(body)) > e.maxSize+2 {
		return entity.RetentionData{}, common.InvalidInputf("PDF exceeds %d MB", e.maxSize>>20)
	}
	pdf, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return entity.RetentionData{}, common.ExtractionFailure("malformed PDF payload", err)
	}
	if len(pdf) == 0 {
		return entity.RetentionData{}, common.ExtractionFailure("empty PDF payload", nil)
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// The rate limit wait counts against the same deadline as the call.
	if e.limiter != nil {
		if err := e.limiter.Wait(callCtx); err != nil {
			return entity.RetentionData{}, common.ExtractionFailure("extraction rate limit wait aborted", err)
		}
	}

	raw, err := e.fields.ExtractFields(callCtx, llm.ExtractRequest{
		FileName: fileName,
		PDF:      pdf,
		DataURI:  pdfDataURI,
		Base64:   body,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			e.logger.Warn("extract.timeout", "file", fileName, "timeout", e.timeout)
			return entity.RetentionData{}, common.ExtractionFailure(fmt.Sprintf("extraction timed out after %s", e.timeout), err)
		}
		e.logger.Error("extract.model_error", "file", fileName, "error", err)
		return entity.RetentionData{}, common.ExtractionFailure("extraction service failed", err)
	}

	data, err := llm.ParseRetentionFields(raw, e.logger)
	if err != nil {
		e.logger.Error("extract.invalid_answer", "file", fileName, "error", err, "raw", truncate(string(raw), 512))
		return entity.RetentionData{}, common.ExtractionFailure("the model returned an unusable result", err)
	}

	e.logger.Info("extract.ok",
		"file", fileName,
		"numero_retencion", data.NumeroRetencion,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

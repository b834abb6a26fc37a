package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

// Finder is the one store read the detector needs.
type Finder interface {
	FindByNumeroRetencion(ctx context.Context, ownerID, numero string) (*entity.RetentionRecord, error)
}

// Result of a duplicate check. Match is set only when Duplicate is true.
type Result struct {
	Duplicate       bool
	NumeroRetencion string
	Match           *entity.RetentionRecord
}

// Message is the user-facing warning for a duplicate, or "" otherwise.
func (r Result) Message() string {
	if !r.Duplicate {
		return ""
	}
	estado := ""
	if r.Match != nil {
		estado = r.Match.Estado.String()
	}
	return fmt.Sprintf("La retención %s ya está registrada en tu historial (estado: %s).", r.NumeroRetencion, estado)
}

type Detector struct {
	finder Finder
	logger *slog.Logger
}

func NewDetector(finder Finder, logger *slog.Logger) *Detector {
	return &Detector{finder: finder, logger: common.LoggerOrDefault(logger)}
}

// Check looks for an existing record of ownerID with the same
// numeroRetencion. Any status counts. A failed read is returned as a store
// error and never reported as "not a duplicate".
func (d *Detector) Check(ctx context.Context, ownerID string, data entity.RetentionData) (Result, error) {
	numero := strings.TrimSpace(data.NumeroRetencion)
	if numero == "" {
		return Result{}, common.InvalidInputf("numeroRetencion is empty")
	}
	match, err := d.finder.FindByNumeroRetencion(ctx, ownerID, numero)
	if err != nil {
		d.logger.Error("dedup.check.failed", "owner", ownerID, "numero_retencion", numero, "error", err)
		return Result{}, common.StoreFailure("duplicate check", err)
	}
	if match == nil {
		return Result{NumeroRetencion: numero}, nil
	}
	d.logger.Info("dedup.check.duplicate", "owner", ownerID, "numero_retencion", numero, "match_id", match.ID)
	return Result{Duplicate: true, NumeroRetencion: numero, Match: match}, nil
}

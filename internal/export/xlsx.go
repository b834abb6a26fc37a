package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

// SheetName is the single worksheet of the history workbook.
const SheetName = "Retenciones"

// DateLayout renders createdAt the way the history table shows it.
const DateLayout = "02/01/2006 15:04"

// Headers are the workbook columns, in order.
var Headers = []string{
	"Fecha Registro",
	"Nro. Retención",
	"Autorización",
	"Razón Social Proveedor",
	"RUC Proveedor",
	"Email Proveedor",
	"Nro. Factura",
	"Fecha Emisión",
	"Estado",
	"Archivo",
}

// Lister reads an owner's history, newest first.
type Lister interface {
	List(ctx context.Context, ownerID string) ([]entity.RetentionRecord, error)
}

// EmailLookup resolves a provider RUC to its contact e-mail, or "".
type EmailLookup func(ctx context.Context, ruc string) string

// Service renders an owner's history as an XLSX workbook.
type Service struct {
	lister   Lister
	emails   EmailLookup
	location *time.Location
	logger   *slog.Logger
}

// NewService builds an exporter. emails may be nil; loc defaults to time.Local.
func NewService(lister Lister, emails EmailLookup, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{lister: lister, emails: emails, location: loc, logger: common.LoggerOrDefault(logger)}
}

// ExportXLSX returns the workbook bytes for ownerID's records.
func (s *Service) ExportXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	start := time.Now()

	recs, err := s.lister.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet instead of adding a second one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, eris.Wrap(err, "xlsx: rename sheet")
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, eris.Wrap(err, "xlsx: write header")
		}
	}

	for i, r := range recs {
		row := i + 2
		email := ""
		if s.emails != nil {
			email = s.emails(ctx, r.RucProveedor)
		}
		values := []any{
			r.CreatedAt.In(s.location).Format(DateLayout),
			r.NumeroRetencion,
			r.NumeroAutorizacion,
			r.RazonSocialProveedor,
			r.RucProveedor,
			email,
			r.NumeroFactura,
			r.FechaEmision,
			r.Estado.String(),
			r.FileName,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, eris.Wrapf(err, "xlsx: write row %d", row)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, eris.Wrap(err, "xlsx: freeze header")
	}
	_ = f.SetColWidth(SheetName, "A", "A", 18) // fecha
	_ = f.SetColWidth(SheetName, "B", "B", 20)
	_ = f.SetColWidth(SheetName, "C", "C", 52) // autorización
	_ = f.SetColWidth(SheetName, "D", "D", 36)
	_ = f.SetColWidth(SheetName, "E", "F", 28)
	_ = f.SetColWidth(SheetName, "G", "I", 18)
	_ = f.SetColWidth(SheetName, "J", "J", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: write")
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", ownerID,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// FileName is the suggested download name for an export made at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("retenciones-%s.xlsx", t.Format("20060102-150405"))
}

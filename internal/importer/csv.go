package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/internal/common"
)

// RequiredColumns must appear in the header row.
var RequiredColumns = []string{"ruc", "email"}

type providerRow struct {
	RUC   string `csv:"ruc"`
	Email string `csv:"email"`
}

// Result of parsing a provider e-mail CSV.
type Result struct {
	Emails      map[string]string
	ValidRows   int
	SkippedRows int
}

// ParseProviderCSV reads a CSV with at least "ruc" and "email" columns into a
// RUC to e-mail mapping. Header names are matched case-insensitively, rows
// missing either value are skipped, and a later row wins over an earlier
// one for the same RUC.
func ParseProviderCSV(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, common.InvalidInputf("el archivo CSV está vacío")
	}
	if err != nil {
		return Result{}, common.NewAppError(common.CodeInvalidInput, "error al leer el archivo", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Result{}, common.InvalidInputf("el archivo CSV debe contener las columnas: %s (faltan: %s)",
			strings.Join(RequiredColumns, ", "), strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return Result{}, common.NewAppError(common.CodeInvalidInput, "encabezado CSV inválido", eris.Wrap(err, "csv: build decoder"))
	}

	res := Result{Emails: make(map[string]string)}
	for {
		var row providerRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csvutil.ErrFieldCount) {
			res.SkippedRows++
			continue
		}
		if err != nil {
			return Result{}, common.NewAppError(common.CodeInvalidInput, "error al leer el archivo", eris.Wrap(err, "csv: decode row"))
		}
		ruc, email := strings.TrimSpace(row.RUC), strings.TrimSpace(row.Email)
		if ruc == "" || email == "" {
			res.SkippedRows++
			continue
		}
		res.Emails[ruc] = email
		res.ValidRows++
	}
	return res, nil
}

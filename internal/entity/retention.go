package entity

import (
	"time"

	"github.com/vinochelo/extractor/constants"
)

// RetentionData is the structured result of extracting one retención PDF.
// Values are opaque strings as printed on the document.
type RetentionData struct {
	NumeroRetencion      string `json:"numeroRetencion"`
	NumeroAutorizacion   string `json:"numeroAutorizacion"`
	RazonSocialProveedor string `json:"razonSocialProveedor"`
	RucProveedor         string `json:"rucProveedor"`
	NumeroFactura        string `json:"numeroFactura"`
	FechaEmision         string `json:"fechaEmision"`
}

// RetentionRecord is a stored retención owned by one user.
type RetentionRecord struct {
	RetentionData
	ID        string                    `json:"id"`
	FileName  string                    `json:"fileName"`
	CreatedAt time.Time                 `json:"createdAt"`
	UserID    string                    `json:"userId"`
	Estado    constants.RetentionStatus `json:"estado"`
}

// NewRetention carries what a caller supplies on create. ID, CreatedAt and
// UserID are always assigned by the store.
type NewRetention struct {
	Data     RetentionData
	FileName string
	Estado   constants.RetentionStatus
}

// RetentionPatch is a partial update. Only estado is mutable today.
type RetentionPatch struct {
	Estado *constants.RetentionStatus
}

// IsEmpty reports whether the patch changes nothing.
func (p RetentionPatch) IsEmpty() bool {
	return p.Estado == nil
}

// Apply merges the patch into r.
func (p RetentionPatch) Apply(r RetentionRecord) RetentionRecord {
	if p.Estado != nil {
		r.Estado = *p.Estado
	}
	return r
}

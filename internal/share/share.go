package share

import (
	"net/url"
	"strings"

	"github.com/vinochelo/extractor/internal/entity"
)

// VerifyURL is the tax authority's public validity check for electronic documents.
const VerifyURL = "https://srienlinea.sri.gob.ec/comprobantes-electronicos-internet/publico/validezComprobantes.jsf"

const (
	emailSubject = "Anulación retención."
	separator    = "--------------------------------"
)

// Field is one labelled value of a retention, in display order.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fields returns the six extracted values with their Spanish labels. The
// invoice number is shown grouped, see FormatInvoiceNumber.
func Fields(d entity.RetentionData) []Field {
	return []Field{
		{Key: "numeroRetencion", Label: "Nro. Retención", Value: d.NumeroRetencion},
		{Key: "numeroAutorizacion", Label: "Autorización", Value: d.NumeroAutorizacion},
		{Key: "razonSocialProveedor", Label: "Razón Social Proveedor", Value: d.RazonSocialProveedor},
		{Key: "rucProveedor", Label: "RUC Proveedor", Value: d.RucProveedor},
		{Key: "numeroFactura", Label: "Nro. Factura", Value: FormatInvoiceNumber(d.NumeroFactura)},
		{Key: "fechaEmision", Label: "Fecha Emisión", Value: d.FechaEmision},
	}
}

func fieldLines(d entity.RetentionData) string {
	fields := Fields(d)
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = f.Label + ": " + f.Value
	}
	return strings.Join(lines, "\n")
}

// Summary is the clipboard text for a retention.
func Summary(d entity.RetentionData) string {
	return "Resumen de Retención:\n" + separator + "\n" + fieldLines(d) + "\n" + separator
}

// EmailDraft is a void request addressed to the provider.
type EmailDraft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewEmailDraft builds the void request for d. to may be empty.
func NewEmailDraft(d entity.RetentionData, to string) EmailDraft {
	body := "Buenos días,\n\n" +
		"Favor su ayuda anulando la retención adjunta.\n\n" +
		"Detalles de la retención:\n" +
		separator + "\n" +
		fieldLines(d) + "\n" +
		separator + "\n"
	return EmailDraft{To: strings.TrimSpace(to), Subject: emailSubject, Body: body}
}

// MailtoURL renders the draft as a mailto: link with RFC 6068 escaping.
func (e EmailDraft) MailtoURL() string {
	return "mailto:" + escape(e.To) + "?subject=" + escape(e.Subject) + "&body=" + escape(e.Body)
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FormatInvoiceNumber regroups an invoice number as
// establecimiento-punto-secuencial (001-001-000000123). Hyphens are ignored
// on input. Four to six digits group as 3-rest, three or fewer are returned
// bare. Values that are not all digits are returned trimmed but otherwise
// unchanged.
func FormatInvoiceNumber(s string) string {
	s = strings.TrimSpace(s)
	digits := strings.ReplaceAll(s, "-", "")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return s
		}
	}
	switch {
	case len(digits) > 6:
		return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
	case len(digits) > 3:
		return digits[:3] + "-" + digits[3:]
	default:
		return digits
	}
}

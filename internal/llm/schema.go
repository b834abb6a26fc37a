package llm

// RetentionFieldNames lists the keys every extraction result must carry.
var RetentionFieldNames = []string{
	"numeroRetencion",
	"numeroAutorizacion",
	"razonSocialProveedor",
	"rucProveedor",
	"numeroFactura",
	"fechaEmision",
}

// PDFDataURIPattern is the prefix an extraction payload must start with.
const PDFDataURIPattern = `^data:application/pdf;base64,`

// BuildExtractionInputJSONSchema describes the payload accepted before any
// model call is made.
func BuildExtractionInputJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"pdfDataUri": map[string]any{"type": "string", "pattern": PDFDataURIPattern},
			"fileName":   map[string]any{"type": "string", "maxLength": 255},
		},
		"required": []string{"pdfDataUri"},
	}
}

// BuildRetentionJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// RetentionData. It is sent to providers that accept a schema and always
// used locally to validate the answer.
func BuildRetentionJSONSchema() map[string]any {
	props := make(map[string]any, len(RetentionFieldNames))
	for _, name := range RetentionFieldNames {
		props[name] = map[string]any{"type": "string", "minLength": 1}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             RetentionFieldNames,
	}
}

package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/vinochelo/extractor/internal/entity"
)

// synonyms maps keys models tend to invent onto the canonical field.
var synonyms = map[string]string{
	"numero_retencion":       "numeroRetencion",
	"retencion":              "numeroRetencion",
	"autorizacion":           "numeroAutorizacion",
	"numero_autorizacion":    "numeroAutorizacion",
	"razonSocial":            "razonSocialProveedor",
	"razon_social":           "razonSocialProveedor",
	"razon_social_proveedor": "razonSocialProveedor",
	"ruc":                    "rucProveedor",
	"rucCliente":             "rucProveedor",
	"ruc_proveedor":          "rucProveedor",
	"factura":                "numeroFactura",
	"numero_factura":         "numeroFactura",
	"fecha":                  "fechaEmision",
	"fecha_emision":          "fechaEmision",
}

// StripCodeFence removes a surrounding ```json ... ``` block if present.
func StripCodeFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// NormalizeAndSanitizeJSON
// - Strips markdown fences
// - Renames known synonyms to the canonical keys
// - Coerces numbers to strings and trims whitespace
// - Drops null/empty values so the required check reports them
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(StripCodeFence(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)
	for _, from := range slices.Sorted(maps.Keys(synonyms)) {
		to := synonyms[from]
		v, ok := m[from]
		if !ok {
			continue
		}
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		delete(m, from)
		dropped = append(dropped, from+"->"+to)
	}

	for _, k := range RetentionFieldNames {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				m[k] = s
			} else {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			}
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	allowed := make(map[string]struct{}, len(RetentionFieldNames))
	for _, k := range RetentionFieldNames {
		allowed[k] = struct{}{}
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// ParseRetentionFields turns a raw model answer into RetentionData. The
// answer must satisfy the retention schema after sanitizing.
func ParseRetentionFields(raw []byte, logger *slog.Logger) (entity.RetentionData, error) {
	cleaned, _, err := NormalizeAndSanitizeJSON(raw, logger)
	if err != nil {
		return entity.RetentionData{}, err
	}
	if err := ValidateRetentionJSON(cleaned); err != nil {
		return entity.RetentionData{}, fmt.Errorf("schema validation failed: %w", err)
	}
	var out entity.RetentionData
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return entity.RetentionData{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return out, nil
}

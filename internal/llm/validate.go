package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	inputSchema     = sync.OnceValues(func() (*jsonschema.Schema, error) { return CompileSchema(BuildExtractionInputJSONSchema()) })
	retentionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { return CompileSchema(BuildRetentionJSONSchema()) })
)

// CompileSchema compiles a schema built as a generic map.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := CompileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

// ValidateRetentionJSON checks a model answer against the RetentionData schema.
func ValidateRetentionJSON(data []byte) error {
	schema, err := retentionSchema()
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

// ValidateExtractionInput checks the pre-extraction payload shape.
func ValidateExtractionInput(pdfDataURI, fileName string) error {
	schema, err := inputSchema()
	if err != nil {
		return err
	}
	doc := map[string]any{"pdfDataUri": pdfDataURI}
	if fileName != "" {
		doc["fileName"] = fileName
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("input does not match schema: %w", err)
	}
	return nil
}

func validateWith(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

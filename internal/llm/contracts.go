package llm

import "context"

// ExtractRequest is one PDF handed to a model provider. DataURI and Base64
// describe the same bytes as PDF; providers pick whichever their API takes.
type ExtractRequest struct {
	FileName string
	PDF      []byte
	DataURI  string
	Base64   string
}

// FieldExtractor is the port the extraction pipeline depends on. It returns
// the model's raw answer; validation happens in ParseRetentionFields.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) ([]byte, error)
}

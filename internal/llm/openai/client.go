package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/internal/llm"
)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ExtractFields implements llm.FieldExtractor using chat/completions with the
// PDF attached as a file content part.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) ([]byte, error) {
	rid := uuid.NewString()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"file", req.FileName,
		"pdf_bytes", len(req.PDF),
	)

	fileName := req.FileName
	if fileName == "" {
		fileName = "retencion.pdf"
	}
	schema := llm.BuildRetentionJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
			{"role": "user", "content": []map[string]any{
				{"type": "file", "file": map[string]any{"filename": fileName, "file_data": req.DataURI}},
				{"type": "text", "text": llm.BuildUserPrompt(req.FileName)},
			}},
		},
	}
	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, eris.Wrap(err, "openai: chat completion")
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return nil, eris.Wrap(err, "openai: decode response")
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid, "raw", string(raw))
		return nil, eris.New("openai: no choices in response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return nil, eris.Errorf("openai: empty answer (finish_reason %s)", cc.Choices[0].FinishReason)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(content), nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/internal/llm"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "claude-sonnet-4-5-20250929",
		MaxRetries: 0,
	}, nil)
}

func testRequest() llm.ExtractRequest {
	pdf := []byte("%PDF-1.4 test")
	uri := llm.EncodePDFDataURI(pdf)
	_, body, _ := llm.ParseDataURI(uri)
	return llm.ExtractRequest{FileName: "ret.pdf", PDF: pdf, DataURI: uri, Base64: body}
}

func TestClient_ExtractFields(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_test_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"numeroRetencion":"001-002-123456789",`},
				{"type": "text", "text": `"numeroAutorizacion":"A1"}`},
			},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer ts.Close()

	out, err := newTestClient(ts.URL).ExtractFields(context.Background(), testRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"numeroRetencion":"001-002-123456789","numeroAutorizacion":"A1"}`, string(out))

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	doc := content[0].(map[string]any)
	assert.Equal(t, "document", doc["type"])
	source := doc["source"].(map[string]any)
	assert.Equal(t, "application/pdf", source["media_type"])
	assert.Equal(t, testRequest().Base64, source["data"])
}

func TestClient_ExtractFields_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": "Internal server error"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).ExtractFields(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestClient_ExtractFields_NoText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_empty",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "max_tokens",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 0},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).ExtractFields(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text")
}

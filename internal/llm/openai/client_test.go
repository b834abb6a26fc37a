package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/internal/llm"
)

func testRequest() llm.ExtractRequest {
	pdf := []byte("%PDF-1.4 test")
	uri := llm.EncodePDFDataURI(pdf)
	_, body, _ := llm.ParseDataURI(uri)
	return llm.ExtractRequest{FileName: "ret.pdf", PDF: pdf, DataURI: uri, Base64: body}
}

func TestClient_ExtractFields(t *testing.T) {
	var got struct {
		Model          string           `json:"model"`
		ResponseFormat map[string]any   `json:"response_format"`
		Messages       []map[string]any `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  {\"numeroRetencion\":\"1\"}\n"}, "finish_reason": "stop"},
			},
		})
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: ts.URL + "/v1", Model: "gpt-4o-mini"}, nil)
	out, err := c.ExtractFields(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"numeroRetencion":"1"}`, string(out))

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	require.Len(t, got.Messages, 3)
	parts := got.Messages[2]["content"].([]any)
	file := parts[0].(map[string]any)["file"].(map[string]any)
	assert.Equal(t, "ret.pdf", file["filename"])
	assert.Equal(t, testRequest().DataURI, file["file_data"])
}

func TestClient_ExtractFields_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "nope", BaseURL: ts.URL}, nil)
	_, err := c.ExtractFields(context.Background(), testRequest())
	require.Error(t, err)

	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
	assert.Contains(t, statusErr.Body, "bad key")
}

func TestClient_ExtractFields_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: ts.URL}, nil)
	_, err := c.ExtractFields(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

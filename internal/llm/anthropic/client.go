package anthropic

import (
	"context"
	"log/slog"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/internal/llm"
)

// Config for the Anthropic client.
type Config struct {
	APIKey      string
	BaseURL     string // empty uses the SDK default
	Model       string // e.g. "claude-sonnet-4-5-20250929"
	MaxTokens   int64
	Temperature float32
	MaxRetries  int
}

// Client implements llm.FieldExtractor by attaching the PDF as a document
// block to a Messages request.
type Client struct {
	cfg    Config
	client sdk.Client
	log    *slog.Logger
}

// NewClient creates an Anthropic extractor backed by the SDK.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{cfg: cfg, client: sdk.NewClient(opts...), log: logger}
}

func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) ([]byte, error) {
	rid := uuid.NewString()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "anthropic",
		"model", c.cfg.Model,
		"file", req.FileName,
		"pdf_bytes", len(req.PDF),
	)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		System:    []sdk.TextBlockParam{{Text: llm.BuildSystemPrompt()}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: req.Base64}),
				sdk.NewTextBlock(llm.BuildUserPrompt(req.FileName)),
			),
		},
		Temperature: sdk.Float(float64(c.cfg.Temperature)),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		c.log.Error("llm.extract.empty_answer", "req_id", rid, "stop_reason", string(msg.StopReason))
		return nil, eris.Errorf("anthropic: no text in response (stop_reason %s)", msg.StopReason)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(b.String()), nil
}

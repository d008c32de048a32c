// Package classifier provides the Gemini-backed message classifier client.
// This is part of the platform layer; the pipeline depends only on the
// analysis module's Classifier port, which this client satisfies.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"engage_backend/platform/apperr"
	"engage_backend/platform/config"
	"engage_backend/platform/logger"

	"google.golang.org/genai"
)

const systemPrompt = `You classify a single inbound social-media message for a business.
Respond with JSON only, no prose, matching this schema:
{"intent":"purchase|inquiry|complaint|praise|spam|other","confidence":0-100,"sentiment":"positive|neutral|negative","suggestion":"short reply draft in the customer's language"}`

// Context carries tenant-specific classification context.
type Context struct {
	BusinessName string
	Language     string
	Model        string // optional per-tenant model override
}

// Result is the classifier verdict for one message.
type Result struct {
	Intent     string `json:"intent"`
	Confidence int    `json:"confidence"`
	Sentiment  string `json:"sentiment"`
	Suggestion string `json:"suggestion"`
}

// Client wraps the Gemini API for message classification.
type Client struct {
	client       *genai.Client
	defaultModel string
	log          *logger.Logger
}

// New creates a classifier client. Returns nil when no API key is configured;
// callers treat a nil client as "classification disabled".
func New(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*Client, error) {
	if !cfg.IsClassifierEnabled() {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		client:       client,
		defaultModel: cfg.GetClassifierModel(),
		log:          log,
	}, nil
}

// Analyze classifies one message. Rate-limit responses from the provider are
// surfaced as retryable errors so the job queue backs off instead of failing.
func (c *Client) Analyze(ctx context.Context, text string, tenantCtx Context) (Result, error) {
	model := c.defaultModel
	if tenantCtx.Model != "" {
		model = tenantCtx.Model
	}

	prompt := buildPrompt(text, tenantCtx)

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		if isRateLimited(err) {
			return Result{}, apperr.Wrap(apperr.KindRateLimited, "classifier provider rate limited", err)
		}
		return Result{}, fmt.Errorf("classifier: generate content: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")

	var result Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return Result{}, fmt.Errorf("classifier: malformed response: %w", err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 100 {
		result.Confidence = 100
	}

	return result, nil
}

func buildPrompt(text string, tenantCtx Context) string {
	var sb strings.Builder
	sb.WriteString("Business: ")
	sb.WriteString(tenantCtx.BusinessName)
	if tenantCtx.Language != "" {
		sb.WriteString("\nPrimary language: ")
		sb.WriteString(tenantCtx.Language)
	}
	sb.WriteString("\nMessage:\n")
	sb.WriteString(text)
	return sb.String()
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code == 429
}

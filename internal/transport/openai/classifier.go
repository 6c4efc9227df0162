package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/taxonomy"
)

// Classifier resolves free-text need statements to a canonical category via an
// OpenAI-compatible chat API. Every failure mode maps to
// domain.ErrClassifierUnavailable; callers fall back to keyword rules.
type Classifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// ClassifierConfig holds the classification collaborator settings.
type ClassifierConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClassifier creates an LLM-backed intent classifier.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Classifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Model returns the configured model identifier (part of the memo cache key).
func (c *Classifier) Model() string { return c.model }

// intentPayload is the structured response the model is instructed to emit.
type intentPayload struct {
	Intent     *string `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classify returns one canonical category for the text, or "" when the model
// answers null or with a label outside the closed set. A single bounded call,
// no retries; the sequential retry loops of earlier revisions compounded
// latency under provider failure.
func (c *Classifier) Classify(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	labels := strings.Join(taxonomy.Categories, ", ")
	systemPrompt := "Classify the user's short request into exactly one label from a fixed list. " +
		`Return strict JSON only: {"intent":"<label or null>","confidence":0-1}. ` +
		"Labels: " + labels + ". If none fit, use null."

	quoted := make([]string, len(taxonomy.Categories))
	for i, l := range taxonomy.Categories {
		quoted[i] = `"` + l + `"`
	}
	userPrompt := fmt.Sprintf(`User text: %s

Rules:
- Choose only from: [%s]
- Prefer the most obvious help-seeking intent.
- If unclear, use null.

Return only JSON:
{"intent":"<one of labels or null>","confidence":0.xx}`, text, strings.Join(quoted, ", "))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", err, domain.ErrClassifierUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrClassifierUnavailable)
	}

	var payload intentPayload
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return "", fmt.Errorf("malformed intent payload %q: %w", content, domain.ErrClassifierUnavailable)
	}
	if payload.Intent == nil {
		return "", nil
	}

	intent := strings.ToLower(strings.TrimSpace(*payload.Intent))
	if intent == "" || intent == "null" {
		return "", nil
	}
	if !taxonomy.IsCategory(intent) {
		// Off-set label; treat as a collaborator fault so the fallback runs.
		return "", fmt.Errorf("label %q outside closed set: %w", intent, domain.ErrClassifierUnavailable)
	}
	return intent, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

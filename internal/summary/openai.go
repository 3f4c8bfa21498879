package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/i474232898/balloon-tracker/internal/common"
	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = openai.GPT3Dot5Turbo

	flightSystemPrompt = "You are an expert in analyzing flight patterns."
	pointSystemPrompt  = "You are an expert in analyzing flight data."

	defaultMaxTokens = 300
)

// Config holds configuration for the OpenAI summarizer.
type Config struct {
	APIKey string

	// Model defaults to DefaultModel.
	Model string

	// BaseURL overrides the API endpoint (optional).
	BaseURL string

	// MaxTokens caps the completion length.
	MaxTokens int

	Logger zerolog.Logger
}

// OpenAISummarizer implements telemetry.Summarizer on top of chat completions.
type OpenAISummarizer struct {
	client    *openai.Client
	model     string
	maxTokens int
	hasKey    bool
	logger    zerolog.Logger
}

// NewOpenAISummarizer creates a new summarizer.
func NewOpenAISummarizer(cfg Config) *OpenAISummarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAISummarizer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		hasKey:    cfg.APIKey != "",
		logger:    cfg.Logger,
	}
}

// Summarize asks the model to summarize a short sample of flight points.
func (s *OpenAISummarizer) Summarize(ctx context.Context, sample []telemetry.Point) (string, error) {
	prompt := fmt.Sprintf("Summarize this balloon flight data:\n%s...", RenderPoints(sample))
	return s.complete(ctx, flightSystemPrompt, prompt)
}

// DescribePoint asks the model about a single balloon position.
func (s *OpenAISummarizer) DescribePoint(ctx context.Context, p telemetry.Point, place string) (string, error) {
	prompt := fmt.Sprintf("Analyze the following balloon data point: Latitude: %s, Longitude: %s, Altitude: %s",
		formatFloat(p.Latitude), formatFloat(p.Longitude), formatFloat(p.Altitude))
	if place != "" {
		prompt += ", near " + place
	}
	prompt += "."
	return s.complete(ctx, pointSystemPrompt, prompt)
}

func (s *OpenAISummarizer) complete(ctx context.Context, system, user string) (string, error) {
	if !s.hasKey {
		return "", fmt.Errorf("%w: openai api key is not configured", telemetry.ErrSummaryService)
	}

	s.logger.Debug().Str("model", s.model).Int("prompt_chars", len(user)).Msg("requesting completion")

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: user,
				},
			},
			MaxTokens: s.maxTokens,
			N:         1,
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s", telemetry.ErrSummaryService, classify(err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: openai returned empty response or choices", telemetry.ErrSummaryService)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify prefixes the upstream error with the failure class when it is recognisable.
func classify(err error) string {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	msg := err.Error()
	switch {
	case status == http.StatusUnauthorized || common.HasAny(msg, "invalid_api_key", "Incorrect API key"):
		return "authentication failed: " + msg
	case status == http.StatusTooManyRequests || common.HasAny(msg, "insufficient_quota", "rate limit"):
		return "quota exceeded: " + msg
	default:
		return msg
	}
}

// RenderPoints renders points as a list of (lat, lon, alt) tuples.
func RenderPoints(points []telemetry.Point) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range points {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%s, %s, %s)", formatFloat(p.Latitude), formatFloat(p.Longitude), formatFloat(p.Altitude))
	}
	b.WriteByte(']')
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

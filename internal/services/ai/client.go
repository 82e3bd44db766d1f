package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/astralume/astral-api/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default completion model
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
	// completionTemperature biases the model toward deterministic JSON output
	completionTemperature = 0.1
)

// CompletionClient issues a single completion request. One attempt per call;
// retry policy belongs to callers, and this system deliberately has none.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, *models.GenerationMeta, error)
}

// OpenAIClient implements CompletionClient against the OpenAI-compatible API.
type OpenAIClient struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIClient creates a completion client. Empty model/baseURL fall back
// to defaults.
func NewOpenAIClient(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIClient {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIClient{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Complete sends one low-temperature, JSON-biased completion request. Any
// transport failure or non-2xx upstream status is returned as
// *UnavailableError; the raw completion text is returned otherwise.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, *models.GenerationMeta, error) {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(completionTemperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_request",
			zap.String("model", c.model),
			zap.Int("system_length", len(system)),
			zap.Int("user_length", len(user)),
			zap.String("user_preview", SanitizePrompt(user, true)),
		)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if c.logger != nil && c.debugMode {
			c.logger.Debug("llm_api_error",
				zap.String("model", c.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", nil, &UnavailableError{
				Reason:     apiErr.Message,
				StatusCode: apiErr.StatusCode,
			}
		}
		return "", nil, &UnavailableError{Reason: err.Error()}
	}

	if len(resp.Choices) == 0 {
		return "", nil, &UnavailableError{Reason: "no choices in response"}
	}

	content := resp.Choices[0].Message.Content
	meta := &models.GenerationMeta{
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_response",
			zap.String("model", c.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, meta, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// JSONFormat pide al proveedor una salida que respete el schema (structured outputs).
type JSONFormat struct {
	Name        string
	Description string
	Schema      map[string]any
}

// LLMClient define la interfaz para generar respuestas con un LLM.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, format JSONFormat) (string, error)
}

var ErrEmptyResponse = errors.New("llm empty response")

// Options agrupa lo necesario para hablar con un proveedor compatible con OpenAI (OpenRouter por defecto).
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	AppName    string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIClient implementa LLMClient sobre chat completions.
type OpenAIClient struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(opts Options, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://openrouter.ai/api/v1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/") + "/"),
		option.WithRequestTimeout(opts.Timeout),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.AppName != "" {
		// OpenRouter usa estos headers para atribuir el trafico a la app.
		reqOpts = append(reqOpts,
			option.WithHeader("X-Title", opts.AppName),
			option.WithHeader("HTTP-Referer", "https://unsent.app"),
		)
	}

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
		logger: logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
}

func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, format JSONFormat) (string, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   format.Name,
		Schema: format.Schema,
		Strict: openai.Bool(true),
	}
	if format.Description != "" {
		schemaParam.Description = openai.String(format.Description)
	}

	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Responde solo con un objeto JSON que cumpla el schema indicado."),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	})
}

func (c *OpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Warn("llm api error",
				zap.Int("status", apiErr.StatusCode),
				zap.String("model", c.model),
				zap.Duration("elapsed", time.Since(start)),
			)
			return "", fmt.Errorf("llm http error: status=%d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("llm request: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("llm completion",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
	)
	return resp.Choices[0].Message.Content, nil
}

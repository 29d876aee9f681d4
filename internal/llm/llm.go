package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	aclopenai "github.com/cloudwego/eino-ext/libs/acl/openai"
	"github.com/cloudwego/eino/components/model"
)

var ErrMissingAPIKey = errors.New("api key is required")

// Config describes an OpenAI-compatible chat endpoint. Groq is the default
// provider but any compatible base URL works.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Models holds the two clients the pipeline uses. Query is constrained to
// JSON object replies; Answer returns free text.
type Models struct {
	Query  model.BaseChatModel
	Answer model.BaseChatModel
}

func NewModels(ctx context.Context, cfg Config) (Models, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Models{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return Models{}, fmt.Errorf("model name is required")
	}

	queryModel, err := openai.NewChatModel(ctx, chatModelConfig(cfg, true))
	if err != nil {
		return Models{}, fmt.Errorf("create query model: %w", err)
	}
	answerModel, err := openai.NewChatModel(ctx, chatModelConfig(cfg, false))
	if err != nil {
		return Models{}, fmt.Errorf("create answer model: %w", err)
	}
	return Models{Query: queryModel, Answer: answerModel}, nil
}

func chatModelConfig(cfg Config, jsonOutput bool) *openai.ChatModelConfig {
	temperature := float32(cfg.Temperature)
	modelConfig := &openai.ChatModelConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		APIKey:      strings.TrimSpace(cfg.APIKey),
		Model:       strings.TrimSpace(cfg.Model),
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxTokens = &maxTokens
	}
	if jsonOutput {
		modelConfig.ResponseFormat = &aclopenai.ChatCompletionResponseFormat{
			Type: aclopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return modelConfig
}

package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/sqlask/sqlask/internal/observability"
)

var ErrQueryGeneration = errors.New("failed to generate a valid SQL query")

const retryHint = " Please ensure you use the correct column mapping for the query."

const (
	DefaultTopK        = 10
	DefaultMaxAttempts = 3
)

// Schema is the database description the prompt is built from.
type Schema interface {
	Dialect() string
	TableInfo(ctx context.Context) (string, error)
}

// Output is the structured reply requested from the model.
type Output struct {
	Query string `json:"query"`
}

type Config struct {
	TopK        int
	MaxAttempts int
}

type Generator struct {
	model       model.BaseChatModel
	schema      Schema
	template    prompt.ChatTemplate
	parser      schema.MessageParser[Output]
	topK        int
	maxAttempts int
	logger      *slog.Logger
}

func NewGenerator(chatModel model.BaseChatModel, source Schema, cfg Config, logger *slog.Logger) (*Generator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if source == nil {
		return nil, fmt.Errorf("schema source is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		model:    chatModel,
		schema:   source,
		template: newQueryTemplate(),
		parser: schema.NewMessageJSONParser[Output](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
		topK:        topK,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// Generate asks the model for a query answering question. Each attempt
// rebuilds the prompt from the current table info; attempts after the first
// carry a hint about column mapping.
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is required")
	}
	logger := observability.LoggerFromContext(ctx, g.logger)

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		input := question
		if attempt > 1 {
			input += retryHint
		}

		sqlText, err := g.attempt(ctx, input)
		switch {
		case err != nil:
			observability.ObserveGenerationAttempt(observability.GenerationError)
			logger.Warn("query generation attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
			lastErr = err
		case !IsValid(sqlText):
			observability.ObserveGenerationAttempt(observability.GenerationInvalid)
			logger.Warn("query generation returned an invalid query", slog.Int("attempt", attempt), slog.String("query", sqlText))
			lastErr = fmt.Errorf("invalid query %q", sqlText)
		default:
			observability.ObserveGenerationAttempt(observability.GenerationValid)
			logger.Info("valid query generated", slog.Int("attempt", attempt), slog.String("query", sqlText))
			return sqlText, nil
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	observability.IncrementGenerationFailure()
	return "", fmt.Errorf("%w after %d attempts: %v", ErrQueryGeneration, g.maxAttempts, lastErr)
}

func (g *Generator) attempt(ctx context.Context, input string) (string, error) {
	tableInfo, err := g.schema.TableInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("load table info: %w", err)
	}
	messages, err := g.template.Format(ctx, promptVariables(g.schema.Dialect(), g.topK, tableInfo, input))
	if err != nil {
		return "", fmt.Errorf("format query prompt: %w", err)
	}

	reply, err := g.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate query: %w", err)
	}
	if reply == nil {
		return "", fmt.Errorf("model returned no message")
	}

	parsed, err := g.parser.Parse(ctx, &schema.Message{
		Role:    reply.Role,
		Content: stripCodeFence(reply.Content),
	})
	if err != nil {
		return "", fmt.Errorf("parse model output: %w", err)
	}
	return stripMarkdownSQL(parsed.Query), nil
}

// IsValid reports whether sqlText looks like a query. Only the presence of
// SELECT is checked.
func IsValid(sqlText string) bool {
	return strings.Contains(strings.ToUpper(sqlText), "SELECT")
}

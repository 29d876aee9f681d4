package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/sqlask/sqlask/internal/observability"
)

// BuildPrompt labels question, query and result in that fixed order. Result
// may be an execution failure message; it is passed through unchanged.
func BuildPrompt(question, sqlText, result string) string {
	return "Given the following user question, corresponding SQL query, " +
		"and SQL result, answer the user question.\n\n" +
		"Question: " + question + "\n" +
		"SQL Query: " + sqlText + "\n" +
		"SQL Result: " + result
}

type Generator struct {
	model  model.BaseChatModel
	logger *slog.Logger
}

func NewGenerator(chatModel model.BaseChatModel, logger *slog.Logger) (*Generator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	return &Generator{model: chatModel, logger: logger}, nil
}

func (g *Generator) Generate(ctx context.Context, question, sqlText, result string) (string, error) {
	reply, err := g.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(BuildPrompt(question, sqlText, result)),
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	if reply == nil {
		return "", fmt.Errorf("generate answer: model returned no message")
	}
	observability.LoggerFromContext(ctx, g.logger).Debug("answer generated", slog.Int("length", len(reply.Content)))
	return reply.Content, nil
}

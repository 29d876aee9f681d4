package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/sqlask/sqlask/internal/database"
	"github.com/sqlask/sqlask/internal/observability"
)

const FailurePrefix = "Query execution failed: "

type Runner interface {
	Run(ctx context.Context, sqlText string) (database.Rows, error)
}

// Executor runs generated SQL and reports the outcome as text. Execution
// errors never escape: they become part of the result handed to the answer
// step.
type Executor struct {
	runner Runner
	logger *slog.Logger
}

func NewExecutor(runner Runner, logger *slog.Logger) *Executor {
	return &Executor{runner: runner, logger: logger}
}

func (e *Executor) Execute(ctx context.Context, sqlText string) string {
	logger := observability.LoggerFromContext(ctx, e.logger)
	started := time.Now()

	rows, err := e.runner.Run(ctx, sqlText)
	elapsed := time.Since(started)
	observability.ObserveExecution(err == nil, elapsed)
	if err != nil {
		logger.Warn("query execution failed", slog.String("sql", sqlText), slog.Any("error", err))
		return FailurePrefix + err.Error()
	}

	logger.Debug("query executed",
		slog.Int("rows", len(rows.Data)),
		slog.Duration("elapsed", elapsed),
	)
	return Format(rows)
}

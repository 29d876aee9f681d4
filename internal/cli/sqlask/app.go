package sqlask

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sqlask/sqlask/internal/answer"
	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/database"
	"github.com/sqlask/sqlask/internal/llm"
	"github.com/sqlask/sqlask/internal/nl2sql"
	"github.com/sqlask/sqlask/internal/pipeline"
	"github.com/sqlask/sqlask/internal/query"
	"github.com/sqlask/sqlask/internal/storage"
	"github.com/sqlask/sqlask/internal/storage/s3"
)

// ModelFactory builds the chat models; tests replace it with fakes.
type ModelFactory func(ctx context.Context, cfg llm.Config) (llm.Models, error)

// openDatabase connects to the configured database, registers Parquet views
// and prints the startup banner.
func openDatabase(ctx context.Context, cfg config.Config, parquet []string, out io.Writer, logger *slog.Logger) (*database.Handle, error) {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return nil, fmt.Errorf("database url is required (--database-url or SQLASK_DATABASE_URL)")
	}
	sources := make([]database.ParquetSource, 0, len(parquet))
	for _, raw := range parquet {
		source, err := database.ParseParquetSource(raw)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	handle, err := database.Open(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SampleRows:      cfg.Query.SchemaSampleRows,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}
	if err := handle.AttachParquet(ctx, sources, objectStores(cfg.ObjectStore)); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("register parquet sources: %w", err)
	}

	tables, err := handle.UsableTableNames(ctx)
	if err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("database connection error: %w", err)
	}
	logger.Info("database connected", slog.String("dialect", handle.Dialect()), slog.Int("tables", len(tables)))
	_, _ = fmt.Fprintln(out, "Connected to:", handle.Dialect())
	_, _ = fmt.Fprintf(out, "Tables: %v\n", tables)
	return handle, nil
}

func objectStores(cfg config.ObjectStoreConfig) database.StoreResolver {
	return func(_ context.Context, bucket string) (storage.ObjectStore, error) {
		store, err := s3.New(s3.Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			Bucket:          bucket,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UseSSL:          cfg.UseSSL,
			Prefix:          cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func buildRunner(ctx context.Context, cfg config.Config, handle *database.Handle, newModels ModelFactory, logger *slog.Logger) (*pipeline.Runner, error) {
	models, err := newModels(ctx, llm.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		return nil, err
	}

	writer, err := nl2sql.NewGenerator(models.Query, handle, nl2sql.Config{
		TopK:        cfg.Query.TopK,
		MaxAttempts: cfg.Query.MaxAttempts,
	}, logger)
	if err != nil {
		return nil, err
	}
	answerer, err := answer.NewGenerator(models.Answer, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.New(ctx, pipeline.DefaultSteps(pipeline.Deps{
		Writer:   writer,
		Executor: query.NewExecutor(handle, logger),
		Answerer: answerer,
	}), logger)
}

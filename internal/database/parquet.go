package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlask/sqlask/internal/storage"
)

// ParquetSource exposes the Parquet file(s) at Location as a view named Table.
// Location is a local path or glob, or an s3://bucket/key reference.
type ParquetSource struct {
	Table    string
	Location string
}

// ParseParquetSource parses the name=location form used on the command line.
func ParseParquetSource(raw string) (ParquetSource, error) {
	name, location, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	if !ok || name == "" || location == "" {
		return ParquetSource{}, fmt.Errorf("invalid parquet source %q, want name=path", raw)
	}
	return ParquetSource{Table: name, Location: location}, nil
}

// StoreResolver returns the object store serving bucket.
type StoreResolver func(ctx context.Context, bucket string) (storage.ObjectStore, error)

// AttachParquet registers each source as a DuckDB view. Remote objects are
// downloaded to a temp directory that lives until the handle is closed.
func (h *Handle) AttachParquet(ctx context.Context, sources []ParquetSource, stores StoreResolver) error {
	if len(sources) == 0 {
		return nil
	}
	if h.dialect != DialectDuckDB {
		return fmt.Errorf("parquet sources require a duckdb database, got %s", h.dialect)
	}

	groupedPaths := map[string][]string{}
	order := make([]string, 0, len(sources))
	for index, source := range sources {
		location, err := storage.ParseLocation(source.Location)
		if err != nil {
			return err
		}
		localPath := location.Path
		if location.Remote() {
			if stores == nil {
				return fmt.Errorf("object store is required for %q", source.Location)
			}
			store, err := stores(ctx, location.Bucket)
			if err != nil {
				return fmt.Errorf("object store for bucket %q: %w", location.Bucket, err)
			}
			localPath, err = h.fetch(ctx, store, location.Key, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(source.Table), index))
			if err != nil {
				return err
			}
		}
		if _, seen := groupedPaths[source.Table]; !seen {
			order = append(order, source.Table)
		}
		groupedPaths[source.Table] = append(groupedPaths[source.Table], localPath)
	}

	for _, tableName := range order {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, h.quoteIdent(tableName), quoteStringArray(groupedPaths[tableName]))
		if _, err := h.db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}
	return nil
}

func (h *Handle) fetch(ctx context.Context, store storage.ObjectStore, key, fileName string) (string, error) {
	if h.workDir == "" {
		workDir, err := os.MkdirTemp("", "sqlask-parquet-")
		if err != nil {
			return "", fmt.Errorf("create parquet temp dir: %w", err)
		}
		h.workDir = workDir
	}

	info, err := store.Stat(ctx, key)
	if err != nil {
		return "", fmt.Errorf("stat object %q: %w", key, err)
	}
	reader, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get object %q: %w", key, err)
	}
	localPath := filepath.Join(h.workDir, fileName)
	written, err := writeFile(localPath, reader)
	if err != nil {
		_ = reader.Close()
		return "", fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		return "", fmt.Errorf("close object %q: %w", key, err)
	}
	if info.Size > 0 && written != info.Size {
		return "", fmt.Errorf("object %q: downloaded %d bytes, expected %d", key, written, info.Size)
	}
	return localPath, nil
}

func writeFile(path string, reader io.Reader) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()

	return io.Copy(file, reader)
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

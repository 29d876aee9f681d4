package database

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/sqlask/sqlask/internal/storage"
)

type track struct {
	ID     int64  `parquet:"id"`
	Artist string `parquet:"artist"`
}

func TestAttachParquetReadsThroughObjectStore(t *testing.T) {
	parquetBytes, err := buildParquet([]track{{ID: 1, Artist: "Queen"}, {ID: 2, Artist: "ABBA"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	store := &memoryStore{objects: map[string][]byte{"music/part-0.parquet": parquetBytes}}

	handle := openDuckDB(t)
	var requestedBucket string
	err = handle.AttachParquet(context.Background(), []ParquetSource{{
		Table:    "tracks",
		Location: "s3://lake/music/part-0.parquet",
	}}, func(_ context.Context, bucket string) (storage.ObjectStore, error) {
		requestedBucket = bucket
		return store, nil
	})
	if err != nil {
		t.Fatalf("AttachParquet() error = %v", err)
	}
	if requestedBucket != "lake" {
		t.Fatalf("bucket = %q", requestedBucket)
	}

	rows, err := handle.Run(context.Background(), "SELECT COUNT(*) AS c FROM tracks;")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rows.Data) != 1 || rows.Data[0][0] != int64(2) {
		t.Fatalf("count = %#v", rows.Data)
	}

	workDir := handle.workDir
	if workDir == "" {
		t.Fatal("expected a work dir for downloaded objects")
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("work dir still present after Close(): %v", err)
	}
}

func TestAttachParquetGroupsLocalFilesPerTable(t *testing.T) {
	dir := t.TempDir()
	for i, rows := range [][]track{{{ID: 1, Artist: "Queen"}}, {{ID: 2, Artist: "ABBA"}, {ID: 3, Artist: "Queen"}}} {
		parquetBytes, err := buildParquet(rows)
		if err != nil {
			t.Fatalf("buildParquet() error = %v", err)
		}
		path := filepath.Join(dir, "part-"+string(rune('a'+i))+".parquet")
		if err := os.WriteFile(path, parquetBytes, 0o600); err != nil {
			t.Fatalf("write parquet: %v", err)
		}
	}

	handle := openDuckDB(t)
	err := handle.AttachParquet(context.Background(), []ParquetSource{
		{Table: "tracks", Location: filepath.Join(dir, "part-a.parquet")},
		{Table: "tracks", Location: filepath.Join(dir, "part-b.parquet")},
	}, nil)
	if err != nil {
		t.Fatalf("AttachParquet() error = %v", err)
	}

	rows, err := handle.Run(context.Background(), "SELECT COUNT(*) FROM tracks WHERE artist = 'Queen'")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rows.Data[0][0] != int64(2) {
		t.Fatalf("count = %#v", rows.Data[0][0])
	}

	tables, err := handle.UsableTableNames(context.Background())
	if err != nil {
		t.Fatalf("UsableTableNames() error = %v", err)
	}
	if strings.Join(tables, ",") != "tracks" {
		t.Fatalf("UsableTableNames() = %v", tables)
	}
}

func TestAttachParquetRequiresDuckDB(t *testing.T) {
	db, mock := newSQLMock(t)
	handle := New(db, DialectSQLite, 0)

	err := handle.AttachParquet(context.Background(), []ParquetSource{{Table: "t", Location: "t.parquet"}}, nil)
	if err == nil {
		t.Fatal("expected error for non-duckdb handle")
	}
	assertSQLMock(t, mock)
}

func TestAttachParquetRequiresStoreForRemoteSources(t *testing.T) {
	handle := openDuckDB(t)
	err := handle.AttachParquet(context.Background(), []ParquetSource{{Table: "t", Location: "s3://lake/t.parquet"}}, nil)
	if err == nil {
		t.Fatal("expected error without store resolver")
	}
}

func TestParseParquetSource(t *testing.T) {
	got, err := ParseParquetSource(" tracks = s3://lake/music/*.parquet ")
	if err != nil {
		t.Fatalf("ParseParquetSource() error = %v", err)
	}
	if got.Table != "tracks" || got.Location != "s3://lake/music/*.parquet" {
		t.Fatalf("ParseParquetSource() = %+v", got)
	}
	for _, raw := range []string{"tracks", "=file.parquet", "tracks="} {
		if _, err := ParseParquetSource(raw); err == nil {
			t.Fatalf("ParseParquetSource(%q) expected error", raw)
		}
	}
}

func TestQuoteStringArray(t *testing.T) {
	got := quoteStringArray([]string{"/tmp/a.parquet", "/tmp/o'neil.parquet"})
	if got != "['/tmp/a.parquet','/tmp/o''neil.parquet']" {
		t.Fatalf("quoteStringArray() = %q", got)
	}
}

func openDuckDB(t *testing.T) *Handle {
	t.Helper()
	handle, err := Open(context.Background(), Config{URL: "duckdb://"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	return handle
}

func buildParquet(rows []track) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[track](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func TestAttachParquetReportsMissingObjects(t *testing.T) {
	handle := openDuckDB(t)
	store := &memoryStore{objects: map[string][]byte{}}
	err := handle.AttachParquet(context.Background(), []ParquetSource{{Table: "t", Location: "s3://lake/missing.parquet"}},
		func(context.Context, string) (storage.ObjectStore, error) { return store, nil })
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("AttachParquet() error = %v, want ErrObjectNotFound", err)
	}
}

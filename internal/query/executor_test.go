package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sqlask/sqlask/internal/database"
)

type fakeRunner struct {
	rows    database.Rows
	err     error
	lastSQL string
}

func (f *fakeRunner) Run(_ context.Context, sqlText string) (database.Rows, error) {
	f.lastSQL = sqlText
	return f.rows, f.err
}

func TestExecuteFormatsRows(t *testing.T) {
	runner := &fakeRunner{rows: database.Rows{
		Columns: []string{"count"},
		Data:    [][]any{{int64(42)}},
	}}
	executor := NewExecutor(runner, nil)

	got := executor.Execute(context.Background(), "SELECT COUNT(DISTINCT Song_Name) FROM music_dataset;")
	if got != "[(42,)]" {
		t.Fatalf("Execute() = %q", got)
	}
	if runner.lastSQL != "SELECT COUNT(DISTINCT Song_Name) FROM music_dataset;" {
		t.Fatalf("lastSQL = %q", runner.lastSQL)
	}
}

func TestExecuteNeverFails(t *testing.T) {
	runner := &fakeRunner{err: errors.New(`near "SELEC": syntax error`)}
	executor := NewExecutor(runner, nil)

	got := executor.Execute(context.Background(), "SELEC * FROM x")
	if !strings.Contains(got, "Query execution failed") {
		t.Fatalf("Execute() = %q", got)
	}
	if got != `Query execution failed: near "SELEC": syntax error` {
		t.Fatalf("Execute() = %q", got)
	}
}

func TestExecuteAgainstSQLite(t *testing.T) {
	handle, err := database.Open(context.Background(), database.Config{URL: "sqlite://"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	executor := NewExecutor(handle, nil)

	got := executor.Execute(context.Background(), "SELEC * FROM x")
	if !strings.HasPrefix(got, FailurePrefix) {
		t.Fatalf("Execute() = %q", got)
	}

	got = executor.Execute(context.Background(), "SELECT 'Yellow', 'Coldplay' UNION ALL SELECT 'Fix You', 'Coldplay'")
	if got != "[('Yellow', 'Coldplay'), ('Fix You', 'Coldplay')]" {
		t.Fatalf("Execute() = %q", got)
	}
}

func TestExecuteRendersDuckDBAggregatesAsNumbers(t *testing.T) {
	handle, err := database.Open(context.Background(), database.Config{URL: "duckdb://"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	executor := NewExecutor(handle, nil)

	if got := executor.Execute(context.Background(), "SELECT SUM(x) FROM (VALUES (40), (2)) t(x)"); got != "[(42,)]" {
		t.Fatalf("Execute() = %q", got)
	}
	if got := executor.Execute(context.Background(), "SELECT CAST(42.5 AS DECIMAL(10, 2))"); got != "[(42.5,)]" {
		t.Fatalf("Execute() = %q", got)
	}
}

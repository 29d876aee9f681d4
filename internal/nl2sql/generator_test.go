package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeModel struct {
	replies []string
	errs    []error
	inputs  [][]*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	call := len(f.inputs)
	f.inputs = append(f.inputs, input)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call < len(f.replies) {
		return schema.AssistantMessage(f.replies[call], nil), nil
	}
	return schema.AssistantMessage(`{"query": ""}`, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	message, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{message}), nil
}

type fakeSchema struct {
	tableInfo string
	err       error
	calls     int
}

func (f *fakeSchema) Dialect() string { return "mysql" }

func (f *fakeSchema) TableInfo(context.Context) (string, error) {
	f.calls++
	return f.tableInfo, f.err
}

const musicTableInfo = "CREATE TABLE `music_dataset` (\n\t`Song_Name` TEXT,\n\t`Artist` TEXT\n)"

func TestGenerateReturnsFirstValidQuery(t *testing.T) {
	chat := &fakeModel{replies: []string{`{"query": "SELECT COUNT(DISTINCT Song_Name) FROM music_dataset;"}`}}
	source := &fakeSchema{tableInfo: musicTableInfo}
	generator := newTestGenerator(t, chat, source, Config{})

	got, err := generator.Generate(context.Background(), "How many songs are there?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "SELECT COUNT(DISTINCT Song_Name) FROM music_dataset;" {
		t.Fatalf("Generate() = %q", got)
	}
	if len(chat.inputs) != 1 {
		t.Fatalf("model calls = %d, want 1", len(chat.inputs))
	}

	messages := chat.inputs[0]
	if len(messages) != 2 {
		t.Fatalf("prompt messages = %d", len(messages))
	}
	if messages[0].Role != schema.System || messages[1].Role != schema.User {
		t.Fatalf("roles = %s/%s", messages[0].Role, messages[1].Role)
	}
	for _, want := range []string{
		"syntactically correct mysql query",
		"at most 10 results",
		musicTableInfo,
		"Special Query Rules:",
		"LIMIT 10 unless",
		`{"query": "<SQL query>"}`,
	} {
		if !strings.Contains(messages[0].Content, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, messages[0].Content)
		}
	}
	if messages[1].Content != "Question: How many songs are there?" {
		t.Fatalf("user prompt = %q", messages[1].Content)
	}
}

func TestGenerateRetriesWithColumnHint(t *testing.T) {
	chat := &fakeModel{
		replies: []string{
			`{"query": "DESCRIBE music_dataset"}`,
			"",
			"```json\n{\"query\": \"select count(*) from music_dataset where lower(Artist) = lower('Coldplay')\"}\n```",
		},
		errs: []error{nil, errors.New("rate limited"), nil},
	}
	source := &fakeSchema{tableInfo: musicTableInfo}
	generator := newTestGenerator(t, chat, source, Config{})

	got, err := generator.Generate(context.Background(), "How many songs does Coldplay have?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(strings.ToUpper(got), "SELECT") || !strings.Contains(strings.ToUpper(got), "COUNT") {
		t.Fatalf("Generate() = %q", got)
	}
	if len(chat.inputs) != 3 {
		t.Fatalf("model calls = %d, want 3", len(chat.inputs))
	}
	if source.calls != 3 {
		t.Fatalf("TableInfo calls = %d, want 3", source.calls)
	}

	first := chat.inputs[0][1].Content
	if strings.Contains(first, "correct column mapping") {
		t.Fatalf("first attempt should not carry the hint: %q", first)
	}
	for _, attempt := range chat.inputs[1:] {
		want := "Question: How many songs does Coldplay have?" + retryHint
		if attempt[1].Content != want {
			t.Fatalf("retry prompt = %q, want %q", attempt[1].Content, want)
		}
	}
}

func TestGenerateFailsAfterExactlyMaxAttempts(t *testing.T) {
	chat := &fakeModel{replies: []string{
		`{"query": "SHOW TABLES"}`,
		`not json at all`,
		`{"query": ""}`,
		`{"query": "SELECT 1"}`,
	}}
	generator := newTestGenerator(t, chat, &fakeSchema{tableInfo: musicTableInfo}, Config{})

	_, err := generator.Generate(context.Background(), "What is the weather on Mars?")
	if !errors.Is(err, ErrQueryGeneration) {
		t.Fatalf("Generate() error = %v, want ErrQueryGeneration", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(chat.inputs) != 3 {
		t.Fatalf("model calls = %d, want 3", len(chat.inputs))
	}
}

func TestGenerateHonorsConfiguredBudget(t *testing.T) {
	chat := &fakeModel{}
	generator := newTestGenerator(t, chat, &fakeSchema{}, Config{TopK: 25, MaxAttempts: 5})

	if _, err := generator.Generate(context.Background(), "list everything"); !errors.Is(err, ErrQueryGeneration) {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(chat.inputs) != 5 {
		t.Fatalf("model calls = %d, want 5", len(chat.inputs))
	}
	if !strings.Contains(chat.inputs[0][0].Content, "at most 25 results") {
		t.Fatalf("system prompt = %q", chat.inputs[0][0].Content)
	}
}

func TestGenerateCountsSchemaErrorsAsFailedAttempts(t *testing.T) {
	chat := &fakeModel{}
	source := &fakeSchema{err: errors.New("connection reset")}
	generator := newTestGenerator(t, chat, source, Config{})

	_, err := generator.Generate(context.Background(), "How many songs are there?")
	if !errors.Is(err, ErrQueryGeneration) {
		t.Fatalf("Generate() error = %v", err)
	}
	if source.calls != 3 {
		t.Fatalf("TableInfo calls = %d", source.calls)
	}
	if len(chat.inputs) != 0 {
		t.Fatalf("model calls = %d, want 0", len(chat.inputs))
	}
}

func TestGenerateRejectsEmptyQuestion(t *testing.T) {
	chat := &fakeModel{}
	generator := newTestGenerator(t, chat, &fakeSchema{}, Config{})

	if _, err := generator.Generate(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty question")
	}
	if len(chat.inputs) != 0 {
		t.Fatalf("model calls = %d, want 0", len(chat.inputs))
	}
}

func TestGenerateStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chat := &fakeModel{errs: []error{context.Canceled}}
	generator := newTestGenerator(t, chat, &fakeSchema{}, Config{})

	_, err := generator.Generate(ctx, "How many songs are there?")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate() error = %v, want context.Canceled", err)
	}
	if len(chat.inputs) != 1 {
		t.Fatalf("model calls = %d, want 1", len(chat.inputs))
	}
}

func TestNewGeneratorValidatesDependencies(t *testing.T) {
	if _, err := NewGenerator(nil, &fakeSchema{}, Config{}, nil); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := NewGenerator(&fakeModel{}, nil, Config{}, nil); err == nil {
		t.Fatal("expected error for nil schema")
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "SELECT 1", want: true},
		{input: "select name from t", want: true},
		{input: "WITH x AS (SELECT 1) TABLE x", want: true},
		{input: "DELETE FROM t", want: false},
		{input: "", want: false},
	}
	for _, tc := range tests {
		if got := IsValid(tc.input); got != tc.want {
			t.Fatalf("IsValid(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func newTestGenerator(t *testing.T, chat model.BaseChatModel, source Schema, cfg Config) *Generator {
	t.Helper()
	generator, err := NewGenerator(chat, source, cfg, nil)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return generator
}

package nl2sql

import "testing"

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	want := `{"query": "SELECT 1"}`
	inputs := []string{
		`{"query": "SELECT 1"}`,
		"```json\n{\"query\": \"SELECT 1\"}\n```",
		"```\n{\"query\": \"SELECT 1\"}\n```",
		"```{\"query\": \"SELECT 1\"}```",
		"  \n```json\n{\"query\": \"SELECT 1\"}```  ",
	}
	for _, input := range inputs {
		if got := stripCodeFence(input); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", input, got, want)
		}
	}
}

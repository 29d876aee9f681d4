package sqlask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sqlask/sqlask/internal/pipeline"
)

const (
	questionPrompt = "Enter your query:"
	continuePrompt = "Do you want to ask another question? (yes/no):"
)

type Pipeline interface {
	Run(ctx context.Context, question string, observe pipeline.Observer) (pipeline.Record, error)
}

type styles struct {
	query  lipgloss.Style
	result lipgloss.Style
	answer lipgloss.Style
	err    lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	renderer := lipgloss.NewRenderer(out)
	return styles{
		query:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
		result: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B")),
		answer: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		err:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		muted:  renderer.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// Session is the interactive question loop.
type Session struct {
	pipeline Pipeline
	prompter Prompter
	out      io.Writer
	styles   styles
	logger   *slog.Logger
}

func NewSession(p Pipeline, prompter Prompter, out io.Writer, logger *slog.Logger) *Session {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		pipeline: p,
		prompter: prompter,
		out:      out,
		styles:   newStyles(out),
		logger:   logger,
	}
}

// Run prompts for questions until the user declines to continue, input ends
// or ctx is cancelled. A failed question is reported and does not end the
// loop.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.goodbye()
			return nil
		}

		question, err := s.prompter.Ask(questionPrompt)
		if errors.Is(err, io.EOF) {
			s.goodbye()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}

		err = s.Ask(ctx, question)
		if ctx.Err() != nil {
			s.goodbye()
			return nil
		}
		if err != nil {
			_, _ = fmt.Fprintln(s.out, s.styles.err.Render("Error:"), err)
		}

		answer, err := s.prompter.Ask(continuePrompt)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read continue answer: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
			s.goodbye()
			return nil
		}
	}
}

// Ask runs a single question and prints every step's output as it arrives.
// A pipeline error is returned to the caller without being printed.
func (s *Session) Ask(ctx context.Context, question string) error {
	_, _ = fmt.Fprintln(s.out)
	_, _ = fmt.Fprintln(s.out, s.styles.muted.Render("Processing query..."))
	record, err := s.pipeline.Run(ctx, question, s.report)
	if err != nil {
		s.logger.Warn("question failed", slog.String("session_id", record.ID), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *Session) report(update pipeline.Update) {
	switch update.Field {
	case pipeline.FieldQuery:
		_, _ = fmt.Fprintln(s.out, s.styles.query.Render("Generated SQL Query:"), update.Value)
	case pipeline.FieldResult:
		_, _ = fmt.Fprintln(s.out, s.styles.result.Render("Query Results:"), update.Value)
	case pipeline.FieldAnswer:
		_, _ = fmt.Fprintln(s.out, s.styles.answer.Render("Final Answer:"), update.Value)
	}
}

func (s *Session) goodbye() {
	_, _ = fmt.Fprintln(s.out, "Goodbye!")
}

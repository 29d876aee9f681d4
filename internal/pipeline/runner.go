package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/sqlask/sqlask/internal/observability"
)

const graphName = "sqlask"

// Observer receives each update after it has been merged into the record.
type Observer func(Update)

type Runner struct {
	graph  compose.Runnable[*Record, *Record]
	steps  []string
	logger *slog.Logger
}

type runStateKey struct{}

type runState struct {
	observe Observer
	err     error
}

// New compiles steps into a linear graph: START, each step in order, END.
func New(ctx context.Context, steps []Step, logger *slog.Logger) (*Runner, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("at least one step is required")
	}

	r := &Runner{logger: logger}
	graph := compose.NewGraph[*Record, *Record]()
	previous := compose.START
	for _, step := range steps {
		if strings.TrimSpace(step.Name) == "" {
			return nil, fmt.Errorf("step name is required")
		}
		if step.Run == nil {
			return nil, fmt.Errorf("step %q has no run function", step.Name)
		}
		if err := graph.AddLambdaNode(step.Name, compose.InvokableLambda(r.node(step)), compose.WithNodeName(step.Name)); err != nil {
			return nil, fmt.Errorf("add step %q: %w", step.Name, err)
		}
		if err := graph.AddEdge(previous, step.Name); err != nil {
			return nil, fmt.Errorf("connect %q to %q: %w", previous, step.Name, err)
		}
		r.steps = append(r.steps, step.Name)
		previous = step.Name
	}
	if err := graph.AddEdge(previous, compose.END); err != nil {
		return nil, fmt.Errorf("connect %q to end: %w", previous, err)
	}

	runnable, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}
	r.graph = runnable
	return r, nil
}

// Run processes one question. On a step error the partially filled record is
// returned with the error.
func (r *Runner) Run(ctx context.Context, question string, observe Observer) (Record, error) {
	record := &Record{ID: uuid.NewString(), Question: question}
	state := &runState{observe: observe}
	ctx = observability.ContextWithSessionID(ctx, record.ID)
	ctx = context.WithValue(ctx, runStateKey{}, state)

	observability.IncrementQuestions()
	observability.LoggerFromContext(ctx, r.logger).Debug("pipeline started", slog.String("question", question))

	out, err := r.graph.Invoke(ctx, record)
	if err != nil {
		if state.err != nil {
			return *record, state.err
		}
		return *record, fmt.Errorf("run pipeline: %w", err)
	}
	return *out, nil
}

func (r *Runner) Steps() []string {
	return append([]string(nil), r.steps...)
}

// Mermaid renders the pipeline as a mermaid flowchart.
func (r *Runner) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	b.WriteString("\t__start__([START])\n")
	for _, name := range r.steps {
		fmt.Fprintf(&b, "\t%s[%s]\n", name, name)
	}
	b.WriteString("\t__end__([END])\n")

	previous := "__start__"
	for _, name := range r.steps {
		fmt.Fprintf(&b, "\t%s --> %s\n", previous, name)
		previous = name
	}
	fmt.Fprintf(&b, "\t%s --> __end__\n", previous)
	return b.String()
}

func (r *Runner) node(step Step) func(context.Context, *Record) (*Record, error) {
	return func(ctx context.Context, record *Record) (*Record, error) {
		logger := observability.LoggerFromContext(ctx, r.logger).With(slog.String("step", step.Name))
		state, _ := ctx.Value(runStateKey{}).(*runState)

		started := time.Now()
		update, err := step.Run(ctx, *record)
		elapsed := time.Since(started)
		observability.ObserveStep(step.Name, err, elapsed)
		if err != nil {
			logger.Error("pipeline step failed", slog.Any("error", err))
			err = fmt.Errorf("%s: %w", step.Name, err)
			if state != nil {
				state.err = err
			}
			return nil, err
		}

		update.Step = step.Name
		update.Apply(record)
		logger.Debug("pipeline step completed", slog.String("field", string(update.Field)), slog.Duration("elapsed", elapsed))
		if state != nil && state.observe != nil {
			state.observe(update)
		}
		return record, nil
	}
}

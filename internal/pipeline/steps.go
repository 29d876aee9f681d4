package pipeline

import "context"

const (
	StepWriteQuery     = "write_query"
	StepExecuteQuery   = "execute_query"
	StepGenerateAnswer = "generate_answer"
)

type StepFunc func(ctx context.Context, record Record) (Update, error)

type Step struct {
	Name string
	Run  StepFunc
}

type QueryWriter interface {
	Generate(ctx context.Context, question string) (string, error)
}

type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string) string
}

type AnswerWriter interface {
	Generate(ctx context.Context, question, sqlText, result string) (string, error)
}

// Deps are the long-lived collaborators shared by every run.
type Deps struct {
	Writer   QueryWriter
	Executor QueryExecutor
	Answerer AnswerWriter
}

func DefaultSteps(deps Deps) []Step {
	return []Step{
		{
			Name: StepWriteQuery,
			Run: func(ctx context.Context, record Record) (Update, error) {
				sqlText, err := deps.Writer.Generate(ctx, record.Question)
				if err != nil {
					return Update{}, err
				}
				return Update{Field: FieldQuery, Value: sqlText}, nil
			},
		},
		{
			Name: StepExecuteQuery,
			Run: func(ctx context.Context, record Record) (Update, error) {
				return Update{Field: FieldResult, Value: deps.Executor.Execute(ctx, record.Query)}, nil
			},
		},
		{
			Name: StepGenerateAnswer,
			Run: func(ctx context.Context, record Record) (Update, error) {
				answer, err := deps.Answerer.Generate(ctx, record.Question, record.Query, record.Result)
				if err != nil {
					return Update{}, err
				}
				return Update{Field: FieldAnswer, Value: answer}, nil
			},
		},
	}
}

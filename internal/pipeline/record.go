package pipeline

// Record is the state of one question as it moves through the pipeline.
type Record struct {
	ID       string
	Question string
	Query    string
	Result   string
	Answer   string
}

type Field string

const (
	FieldQuery  Field = "query"
	FieldResult Field = "result"
	FieldAnswer Field = "answer"
)

// Update is the partial output of a single step.
type Update struct {
	Step  string
	Field Field
	Value string
}

// Apply merges u into record. Only the field named by u changes.
func (u Update) Apply(record *Record) {
	switch u.Field {
	case FieldQuery:
		record.Query = u.Value
	case FieldResult:
		record.Result = u.Value
	case FieldAnswer:
		record.Answer = u.Value
	}
}

package nl2sql

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const systemPrompt = `Given an input question, create a syntactically correct {{.dialect}} query to run to help find the answer. Unless the user specifies in the question a specific number of examples they wish to obtain, always limit your query to at most {{.top_k}} results. You can order the results by a relevant column to return the most interesting examples in the database.

Never query for all the columns from a specific table, only ask for the few relevant columns given the question.

Pay attention to use only the column names that you can see in the schema description. Be careful to not query for columns that do not exist. Also, pay attention to which column is in which table.

Only use the following tables:
{{.table_info}}

Special Query Rules:
1. If the question includes "song", search in the Song_Name column.
2. If the question includes "artist" or "singer", search in the Artist column.
3. Use LOWER() to make searches case-insensitive.
4. Use LIMIT {{.top_k}} unless a specific number is requested.

Example Queries:
- "How many songs are there?" -> SELECT COUNT(DISTINCT Song_Name) FROM music_dataset;
- "Show top 5 songs of Coldplay" -> SELECT Song_Name FROM music_dataset WHERE LOWER(Artist) = LOWER('Coldplay') LIMIT 5;

Respond with a single JSON object of the form {"query": "<SQL query>"} and nothing else.`

const userPrompt = `Question: {{.input}}`

func newQueryTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	)
}

func promptVariables(dialect string, topK int, tableInfo, input string) map[string]any {
	return map[string]any{
		"dialect":    dialect,
		"top_k":      topK,
		"table_info": tableInfo,
		"input":      input,
	}
}

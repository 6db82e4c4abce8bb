// Package prompt turns a schema description and a question into the system and
// user messages sent to the completion service.
//
// The rules in the instruction text are the only thing standing between the
// model and the database: nothing downstream checks that the reply really is a
// single SQL statement.
package prompt

import (
	"strings"

	"sqlai/cli/internal/schema"
)

// Prompt is the pair of messages for one completion request.
type Prompt struct {
	System string
	User   string
}

const instructions = `You are an SQL expert.
Convert every request you receive into a single SQL query for PostgreSQL.
The query must be ready to run as-is through a database driver.
Example of the expected format: SELECT * FROM table_name WHERE column_name = 'value';
Reply with the SQL query only. Do not add explanations, comments or markdown.
If the request cannot be answered with the tables described below, reply with an empty string and nothing else.
First translate the user's request into English, then write the corresponding SQL query.
This is the structure of the database tables:

`

// Build combines the fixed instructions with the rendered schema. It is pure.
func Build(desc schema.Description, question string) Prompt {
	return BuildWithRenderedSchema(desc.Render(), question)
}

// BuildWithRenderedSchema is Build for callers that already hold the rendered text.
func BuildWithRenderedSchema(schemaText, question string) Prompt {
	return Prompt{
		System: instructions + schemaText,
		User:   strings.TrimSpace(question),
	}
}

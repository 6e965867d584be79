package prompts

import (
	"fmt"
	"strings"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

// GenerationSystemMessage primes the deterministic SQL synthesis call.
func GenerationSystemMessage(dialect string) string {
	return fmt.Sprintf(`You are an expert SQL writer targeting %s.
Write exactly one SELECT statement that answers the question using only the
tables provided. Rules:
- One statement, no semicolon, no comments.
- SELECT only; never write data-modifying or DDL statements.
- Use only the listed tables and columns; never invent names.
- Prefer explicit column lists over SELECT * when aggregating.
Return only the SQL statement, with no explanation.`, dialect)
}

// BuildGenerationPrompt renders the essential-table schemas and the example
// library. Only essential tables appear here: the candidate set was already
// narrowed and widening it again would defeat the evaluator.
func BuildGenerationPrompt(question string, essential []models.TableDescriptor) string {
	var sb strings.Builder

	sb.WriteString("# SQL Generation\n\n")
	fmt.Fprintf(&sb, "## Question\n\n%s\n\n", question)

	sb.WriteString("## Available Tables\n\n")
	for _, d := range essential {
		WriteSchemaBlock(&sb, d)
	}

	sb.WriteString("## Examples\n\n")
	for _, ex := range ExampleLibrary() {
		fmt.Fprintf(&sb, "Q (%s): %s\n", ex.Shape, ex.Question)
		fmt.Fprintf(&sb, "SQL: %s\n\n", ex.SQL)
	}

	sb.WriteString("## Your SQL\n\n")
	sb.WriteString("Return only the statement.\n")

	return sb.String()
}

// WriteSchemaBlock renders one table's schema for a prompt.
func WriteSchemaBlock(sb *strings.Builder, d models.TableDescriptor) {
	fmt.Fprintf(sb, "### %s\n", d.ID())
	if d.Description != "" {
		fmt.Fprintf(sb, "%s\n", d.Description)
	}
	sb.WriteString("Columns:\n")
	for _, col := range d.Columns {
		fmt.Fprintf(sb, "- %s (%s): %s\n", col.Name, col.Type, col.Description)
	}
	for _, rel := range d.Relationships {
		fmt.Fprintf(sb, "Relationship: %s\n", rel)
	}
	sb.WriteString("\n")
}

// StripSQLResponse removes markdown fences and a trailing semicolon from a
// generated statement.
func StripSQLResponse(response string) string {
	s := strings.TrimSpace(response)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```SQL")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

package prompts

import (
	"fmt"
	"strings"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

// NarrativeSystemMessage primes the mildly creative narration call.
func NarrativeSystemMessage() string {
	return `You summarize SQL query results for a business user.
Ground every claim in the rows you are given: no values, trends, or causes
that are not computable from them. Use hedged language for patterns
("suggests", "appears"), never certainty. Do not give recommendations unless
the question explicitly asked for them. Answer in the language of the
question.`
}

// BuildNarrativePrompt embeds the preview rows and the total row count. When
// totalRows exceeds the preview, the narrator must disclose the truncation.
func BuildNarrativePrompt(question, statement string, columns []string, preview []models.Row, totalRows int, truncated bool) string {
	var sb strings.Builder

	sb.WriteString("# Result Narration\n\n")
	fmt.Fprintf(&sb, "## Question\n\n%s\n\n", question)
	fmt.Fprintf(&sb, "## Executed SQL\n\n```sql\n%s\n```\n\n", statement)

	fmt.Fprintf(&sb, "## Results (%d row(s) total", totalRows)
	if len(preview) < totalRows {
		fmt.Fprintf(&sb, ", first %d shown", len(preview))
	}
	sb.WriteString(")\n\n")

	sb.WriteString(strings.Join(columns, " | "))
	sb.WriteString("\n")
	for _, row := range preview {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = fmt.Sprintf("%v", row[col])
		}
		sb.WriteString(strings.Join(values, " | "))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if truncated {
		sb.WriteString("Note: the result set was larger than the row cap; these rows are a truncated portion. Say so explicitly in your summary.\n\n")
	} else if len(preview) < totalRows {
		fmt.Fprintf(&sb, "Note: only the first %d of %d rows are shown above. Mention that the summary is based on the shown rows.\n\n", len(preview), totalRows)
	}

	sb.WriteString("Write a short factual summary (2-4 sentences) answering the question from these rows.\n")

	return sb.String()
}

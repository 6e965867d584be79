package prompts

import (
	"fmt"
	"strings"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

// EvaluationSystemMessage primes the candidate-narrowing call.
func EvaluationSystemMessage() string {
	return `You are a database schema analyst. Given a question and a set of
candidate tables retrieved by semantic similarity, decide which tables are
strictly necessary to answer the question. Topical similarity is not enough:
keep a table only if the answer cannot be computed without it. Never invent
tables that are not in the candidate list.`
}

// BuildEvaluationPrompt renders the candidate set for relevance judgment.
// Candidates are numbered 1..n; the response references them by table ID.
func BuildEvaluationPrompt(question string, candidates []models.RetrievedCandidate) string {
	var sb strings.Builder

	sb.WriteString("# Essential Table Selection\n\n")
	fmt.Fprintf(&sb, "## Question\n\n%s\n\n", question)

	sb.WriteString("## Candidate Tables\n\n")
	for i, c := range candidates {
		d := c.Descriptor
		fmt.Fprintf(&sb, "### %d. %s (similarity %.2f)\n", i+1, d.ID(), c.Similarity)
		if d.Description != "" {
			fmt.Fprintf(&sb, "%s\n", d.Description)
		}
		if len(d.Columns) > 0 {
			sb.WriteString("Columns: ")
			names := make([]string, len(d.Columns))
			for j, col := range d.Columns {
				names[j] = col.Name
			}
			sb.WriteString(strings.Join(names, ", "))
			sb.WriteString("\n")
		}
		for _, rel := range d.Relationships {
			fmt.Fprintf(&sb, "Relationship: %s\n", rel)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Response Format (JSON)\n\n")
	sb.WriteString("Score every candidate; do not omit any.\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(`{
  "tables": [
    {"id": "sales_db.orders", "relevance": 0.9, "reason": "holds the order totals the question asks for"},
    {"id": "analytics_db.daily_metrics", "relevance": 0.1, "reason": "aggregates, not per-order data"}
  ],
  "confidence": 0.85,
  "missing": "no table links orders to regions"
}`)
	sb.WriteString("\n```\n\n")
	sb.WriteString("Relevance is 0.0-1.0. Set \"missing\" only when a table the question appears to need is absent from the candidates; otherwise use an empty string.\n")

	return sb.String()
}

package prompts

import (
	"fmt"
	"strings"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

// BuildRepairPrompt asks the generation backend to revise a failing
// statement given the concrete error list. Security-class errors never reach
// this prompt; those are terminal.
func BuildRepairPrompt(question, statement string, errs []models.ValidationError, essential []models.TableDescriptor) string {
	var sb strings.Builder

	sb.WriteString("# SQL Repair\n\n")
	sb.WriteString("The statement below failed validation. Fix it without changing what the question asks for.\n\n")

	fmt.Fprintf(&sb, "## Question\n\n%s\n\n", question)
	fmt.Fprintf(&sb, "## Failing Statement\n\n```sql\n%s\n```\n\n", statement)

	sb.WriteString("## Validation Errors\n\n")
	for _, e := range errs {
		fmt.Fprintf(&sb, "- %s\n", e.String())
	}
	sb.WriteString("\n")

	sb.WriteString("## Available Tables\n\n")
	for _, d := range essential {
		WriteSchemaBlock(&sb, d)
	}

	sb.WriteString("## Your SQL\n\n")
	sb.WriteString("Return only the corrected SELECT statement, no explanation.\n")

	return sb.String()
}

// SemanticCheckSystemMessage primes the plausibility judgment call.
func SemanticCheckSystemMessage() string {
	return `You are a SQL reviewer. Judge whether a statement plausibly answers
the question: correct join keys, the filters and aggregations the question
implies, sensible grouping. You are not executing the statement; judge the
logic only.`
}

// BuildSemanticCheckPrompt renders the plausibility check for a statement
// that already passed the syntax, security, and table-existence layers.
func BuildSemanticCheckPrompt(question, statement string, essential []models.TableDescriptor) string {
	var sb strings.Builder

	sb.WriteString("# Semantic Plausibility Check\n\n")
	fmt.Fprintf(&sb, "## Question\n\n%s\n\n", question)
	fmt.Fprintf(&sb, "## Statement\n\n```sql\n%s\n```\n\n", statement)

	sb.WriteString("## Tables\n\n")
	for _, d := range essential {
		WriteSchemaBlock(&sb, d)
	}

	sb.WriteString("## Response Format (JSON)\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(`{
  "plausible": true,
  "issues": ["joins orders to payments on the wrong key"]
}`)
	sb.WriteString("\n```\n\n")
	sb.WriteString("List issues only when plausible is false. Minor style points are not issues.\n")

	return sb.String()
}

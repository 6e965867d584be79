// Package prompts builds the LLM prompts for each pipeline stage and holds
// the curated example-pair library for SQL generation.
package prompts

import (
	"fmt"
	"strings"
)

// IntentSystemMessage primes the deterministic classification call.
func IntentSystemMessage() string {
	return `You are an intent classifier for a database analytics assistant.
Classify each question into exactly one category. Questions may mix languages
(e.g. Indonesian and English); classify them the same way.

A question is ambiguous when it lacks a determinable metric, entity, or
timeframe. Never guess a concrete category for a vague question.`
}

// BuildIntentPrompt renders the classification prompt for one question.
func BuildIntentPrompt(question string) string {
	var sb strings.Builder

	sb.WriteString("# Question Intent Classification\n\n")
	sb.WriteString("Classify the question into exactly one category:\n\n")
	sb.WriteString("- **simple_retrieval**: list or look up rows without conditions (\"show all customers\")\n")
	sb.WriteString("- **filtered_retrieval**: rows matching conditions (\"orders from last week\", \"pelanggan dari Jakarta\")\n")
	sb.WriteString("- **aggregation**: counts, sums, averages (\"how many orders\", \"total penjualan\")\n")
	sb.WriteString("- **multi_table_join**: combines entities across tables (\"customers with their payments\")\n")
	sb.WriteString("- **complex_analytics**: trends, rankings, comparisons over time (\"top sellers per month\")\n")
	sb.WriteString("- **ambiguous**: no determinable metric, entity, or timeframe (\"show me the data\")\n\n")

	sb.WriteString("## Question\n\n")
	fmt.Fprintf(&sb, "%s\n\n", question)

	sb.WriteString("## Response Format (JSON)\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(`{
  "category": "aggregation",
  "confidence": 0.95,
  "reason": "asks for a count of a concrete entity"
}`)
	sb.WriteString("\n```\n\n")
	sb.WriteString("Confidence is 0.0-1.0. For ambiguous questions confidence must be low (below 0.5).\n")

	return sb.String()
}

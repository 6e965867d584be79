package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

func testDescriptor(db, table string) models.TableDescriptor {
	return models.TableDescriptor{
		Database:    db,
		Table:       table,
		Description: "Test table.",
		Columns: []models.ColumnDescription{
			{Name: "id", Type: "integer", Description: "Primary key."},
		},
		Relationships: []string{table + ".id is referenced elsewhere"},
	}
}

func TestBuildIntentPrompt(t *testing.T) {
	prompt := BuildIntentPrompt("How many customers are there?")

	assert.Contains(t, prompt, "How many customers are there?")
	for _, cat := range models.AllIntentCategories() {
		assert.Contains(t, prompt, string(cat))
	}
	assert.Contains(t, prompt, "Response Format (JSON)")
}

func TestBuildEvaluationPromptListsAllCandidates(t *testing.T) {
	candidates := []models.RetrievedCandidate{
		{Descriptor: testDescriptor("sales_db", "customers"), Similarity: 0.9},
		{Descriptor: testDescriptor("sales_db", "orders"), Similarity: 0.7},
	}

	prompt := BuildEvaluationPrompt("count customers", candidates)

	assert.Contains(t, prompt, "sales_db.customers")
	assert.Contains(t, prompt, "sales_db.orders")
	assert.Contains(t, prompt, "similarity 0.90")
}

func TestBuildGenerationPromptOnlyEssentialTables(t *testing.T) {
	essential := []models.TableDescriptor{testDescriptor("sales_db", "customers")}

	prompt := BuildGenerationPrompt("count customers", essential)

	assert.Contains(t, prompt, "sales_db.customers")
	assert.NotContains(t, prompt, "sales_db.orders")

	// The fixed example library conditions every generation call.
	for _, ex := range ExampleLibrary() {
		assert.Contains(t, prompt, ex.SQL)
	}
}

func TestExampleLibraryCoversShapes(t *testing.T) {
	shapes := make(map[string]bool)
	for _, ex := range ExampleLibrary() {
		shapes[ex.Shape] = true
		require.NotEmpty(t, ex.Question)
		require.True(t, strings.HasPrefix(ex.SQL, "SELECT"), "examples are SELECT-only")
	}

	for _, want := range []string{"simple select", "filter", "aggregation", "join", "null-safe join", "time window"} {
		assert.True(t, shapes[want], "missing shape %s", want)
	}
}

func TestStripSQLResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"sql fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"bare fence", "```\nSELECT 1;\n```", "SELECT 1"},
		{"whitespace", "  \nSELECT 1\n ", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSQLResponse(tt.input))
		})
	}
}

func TestBuildRepairPromptIncludesErrors(t *testing.T) {
	errs := []models.ValidationError{
		{Class: models.ValidationUnknownTable, Message: "unknown table clients"},
	}
	prompt := BuildRepairPrompt("count clients", "SELECT COUNT(*) FROM clients", errs, []models.TableDescriptor{testDescriptor("sales_db", "customers")})

	assert.Contains(t, prompt, "unknown table clients")
	assert.Contains(t, prompt, "SELECT COUNT(*) FROM clients")
	assert.Contains(t, prompt, "sales_db.customers")
}

func TestBuildNarrativePromptTruncationNote(t *testing.T) {
	rows := []models.Row{{"n": 42}}

	prompt := BuildNarrativePrompt("how many?", "SELECT COUNT(*) AS n FROM t", []string{"n"}, rows, 10000, true)
	assert.Contains(t, prompt, "42")
	assert.Contains(t, prompt, "truncated")

	prompt = BuildNarrativePrompt("how many?", "SELECT COUNT(*) AS n FROM t", []string{"n"}, rows, 1, false)
	assert.NotContains(t, prompt, "truncated")
}

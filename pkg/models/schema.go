package models

import "fmt"

// ColumnDescription pairs a column name with its semantic meaning.
type ColumnDescription struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
}

// TableDescriptor is the read-only reference record for one table, created
// at indexing time and never modified at query time.
type TableDescriptor struct {
	Database       string              `yaml:"database" json:"database"`
	Table          string              `yaml:"table" json:"table"`
	Description    string              `yaml:"description" json:"description"`
	Columns        []ColumnDescription `yaml:"columns" json:"columns"`
	Relationships  []string            `yaml:"relationships" json:"relationships"`
	ExampleQueries []string            `yaml:"example_queries" json:"example_queries"`
}

// ID returns the "database.table" identifier used by the index and the
// validator's known-schema check.
func (d TableDescriptor) ID() string {
	return fmt.Sprintf("%s.%s", d.Database, d.Table)
}

// RetrievedCandidate is a descriptor plus its similarity to the question,
// in [0,1]. Candidates are ordered by descending similarity with stable
// index order as the tie-break.
type RetrievedCandidate struct {
	Descriptor TableDescriptor
	Similarity float64
}

// EvaluationResult partitions the candidate set into essential and discarded
// tables. Invariant: Essential ∪ Discarded = candidates, Essential ⊆ candidates.
type EvaluationResult struct {
	Essential        []TableDescriptor
	Discarded        []string // table IDs judged not necessary
	Confidence       float64
	MissingTableHint string // non-empty when the essential set looks incomplete
	UsedFallback     bool   // backend output unparseable; all candidates kept
	ElapsedMs        int64
}

// EssentialIDs returns the IDs of the essential tables in order.
func (r EvaluationResult) EssentialIDs() []string {
	ids := make([]string, len(r.Essential))
	for i, d := range r.Essential {
		ids[i] = d.ID()
	}
	return ids
}

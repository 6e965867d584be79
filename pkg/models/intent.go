package models

// IntentCategory classifies the shape of a question. The set is closed:
// backend responses outside it map to IntentAmbiguous, never to a new tag.
type IntentCategory string

const (
	IntentSimpleRetrieval   IntentCategory = "simple_retrieval"
	IntentFilteredRetrieval IntentCategory = "filtered_retrieval"
	IntentAggregation       IntentCategory = "aggregation"
	IntentMultiTableJoin    IntentCategory = "multi_table_join"
	IntentComplexAnalytics  IntentCategory = "complex_analytics"
	IntentAmbiguous         IntentCategory = "ambiguous"
)

// ParseIntentCategory maps a backend string to a known category. Unknown
// values return (IntentAmbiguous, false).
func ParseIntentCategory(s string) (IntentCategory, bool) {
	switch IntentCategory(s) {
	case IntentSimpleRetrieval, IntentFilteredRetrieval, IntentAggregation,
		IntentMultiTableJoin, IntentComplexAnalytics, IntentAmbiguous:
		return IntentCategory(s), true
	}
	return IntentAmbiguous, false
}

// AllIntentCategories returns the closed category set in prompt order.
func AllIntentCategories() []IntentCategory {
	return []IntentCategory{
		IntentSimpleRetrieval,
		IntentFilteredRetrieval,
		IntentAggregation,
		IntentMultiTableJoin,
		IntentComplexAnalytics,
		IntentAmbiguous,
	}
}

// IntentResult is the classifier's output.
type IntentResult struct {
	Category   IntentCategory
	Confidence float64 // 0.0-1.0
	Reason     string
	ElapsedMs  int64
}

// RequiresClarification reports whether the pipeline should stop and ask the
// user for more detail instead of generating SQL.
func (r IntentResult) RequiresClarification(threshold float64) bool {
	return r.Category == IntentAmbiguous || r.Confidence < threshold
}

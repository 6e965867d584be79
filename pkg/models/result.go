package models

// Row is one result row, column name to scalar value, in database return
// order alongside the Columns slice.
type Row map[string]any

// ExecutionResult is the executor's output. RowCount never exceeds the
// configured maximum; if the underlying result set was larger, Truncated is
// set rather than rows being silently dropped.
type ExecutionResult struct {
	Success   bool
	Columns   []string
	Rows      []Row
	RowCount  int
	Truncated bool
	ElapsedMs int64
	Error     string
}

// InsightNarrative is the narrator's output, derived strictly from the
// execution result contents.
type InsightNarrative struct {
	Text      string
	Degraded  bool // backend failed; Text is the minimal factual fallback
	ElapsedMs int64
}

// StageLatencies records per-stage elapsed milliseconds for the answer
// metadata.
type StageLatencies struct {
	ClassifyMs int64 `json:"classify_ms"`
	RetrieveMs int64 `json:"retrieve_ms"`
	EvaluateMs int64 `json:"evaluate_ms"`
	GenerateMs int64 `json:"generate_ms"`
	ValidateMs int64 `json:"validate_ms"`
	ExecuteMs  int64 `json:"execute_ms"`
	NarrateMs  int64 `json:"narrate_ms"`
	TotalMs    int64 `json:"total_ms"`
}

// AnswerMetadata is the "what was understood so far" block attached to every
// answer, terminal failures included.
type AnswerMetadata struct {
	RequestID        string         `json:"request_id"`
	Intent           IntentCategory `json:"intent"`
	IntentConfidence float64        `json:"intent_confidence"`
	EssentialTables  []string       `json:"essential_tables"`
	TargetDatabase   string         `json:"target_database,omitempty"`
	RowCount         int            `json:"row_count"`
	Truncated        bool           `json:"truncated"`
	Outcome          string         `json:"outcome"`
	Latencies        StageLatencies `json:"latencies"`
}

// Answer is the single value returned to the caller for every question,
// success or terminal failure.
type Answer struct {
	Narrative string         `json:"narrative"`
	SQL       *string        `json:"sql"`
	Rows      []Row          `json:"rows"`
	Columns   []string       `json:"columns,omitempty"`
	Metadata  AnswerMetadata `json:"metadata"`
}

package output

// Status describes the outcome of a single finding or run.
type Status string

const (
	// StatusFixed means a deterministic fix was generated for the finding.
	StatusFixed Status = "FIXED"
	// StatusManual means the finding was classified but needs human review.
	StatusManual Status = "MANUAL"
	// StatusError means a run could not be analyzed (for example, its logs
	// could not be fetched).
	StatusError Status = "ERROR"
)

// Record is the unit of structured output: one classified finding from one
// workflow run, or one run-level failure.
type Record struct {
	Status      Status `json:"status"`
	Repo        string `json:"repo"`
	RunID       int64  `json:"run_id"`
	Workflow    string `json:"workflow,omitempty"`
	Category    string `json:"category,omitempty"`
	Title       string `json:"title,omitempty"`
	LineNumber  int    `json:"line_number,omitempty"`
	MatchedText string `json:"matched_text,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Section carries a rendered Markdown fragment destined for the report sink.
// Other sinks ignore it.
type Section struct {
	Title    string
	Markdown string
}

package output

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - analysis.started
// - run.started
// - detection.result
// - run.finished
// - analysis.finished
//
// JSON mode remains an aggregate of Record values.
type Event struct {
	Type string `json:"type"`
	Repo string `json:"repo,omitempty"`
	*Record
	RunID      int64 `json:"run_id,omitempty"`
	Runs       int   `json:"runs,omitempty"`
	Detections int   `json:"detections,omitempty"`
	Fixes      int   `json:"fixes,omitempty"`
	ExitCode   int   `json:"exit_code,omitempty"`
}

func eventFromRecord(r Record) Event {
	return Event{Type: "detection.result", Repo: r.Repo, RunID: r.RunID, Record: &r}
}

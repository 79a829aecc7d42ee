package output

// ItemResult is the structured record of one executed plan item.
type ItemResult struct {
	Repo   string `json:"repo"`
	Action string `json:"action"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Event is a lifecycle record for structured output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// - run.started
// - plan.built
// - item.result
// - run.finished
//
// JSON mode remains an aggregate of ItemResult values.
type Event struct {
	Type string `json:"type"`
	*ItemResult
	Login     string `json:"login,omitempty"`
	Planned   int    `json:"planned,omitempty"`
	Rejected  int    `json:"rejected,omitempty"`
	Succeeded int    `json:"succeeded,omitempty"`
	Failed    int    `json:"failed,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
}

func eventFromResult(r ItemResult) Event {
	return Event{Type: "item.result", ItemResult: &r}
}

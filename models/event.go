package models

import "encoding/json"

// Event types pushed to viewers. Payloads are always full replacements,
// never incremental diffs.
const (
	EventOpportunityBulk = "opportunity_bulk"
	EventKPI             = "kpi"
)

// Event is the envelope for every server-to-viewer message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Marshal serializes the envelope once so the hub can hand the same bytes to
// every subscriber.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

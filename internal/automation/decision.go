package automation

import "time"

// Decision is the latest assignment computed for a task. It is replaced as a
// whole every time assignment runs.
type Decision struct {
	TaskID          string    `json:"taskId"`
	MatchedRuleID   *string   `json:"matchedRuleId"`
	MatchedRuleName *string   `json:"matchedRuleName"`
	AssignedAgent   string    `json:"assignedAgent"`
	Confidence      float64   `json:"confidence"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
	ManualOverride  *string   `json:"manualOverride"`
}

package subagent

import (
	"fmt"
	"strconv"
	"strings"
)

type Action string

const (
	ActionSteer Action = "steer"
	ActionKill  Action = "kill"
	ActionList  Action = "list"
)

func (a Action) Valid() bool {
	switch a {
	case ActionSteer, ActionKill, ActionList:
		return true
	}
	return false
}

// Subagent is the canonical view of an upstream subagent record.
type Subagent struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Summary      string  `json:"summary"`
	LastActivity *string `json:"lastActivity"`
	Raw          any     `json:"raw"`
}

var arrayKeys = []string{"data", "result", "subagents", "items"}

// ToArray finds the list of records in payload: either the payload itself
// or the first array under one of the known wrapper keys.
func ToArray(payload any) []any {
	if arr, ok := payload.([]any); ok {
		return arr
	}
	if m, ok := payload.(map[string]any); ok {
		for _, k := range arrayKeys {
			if arr, ok := m[k].([]any); ok {
				return arr
			}
		}
	}
	return []any{}
}

// Normalize maps an upstream record of unknown shape onto Subagent. index is
// the record's position and names records that carry no id.
func Normalize(item any, index int) *Subagent {
	m, _ := item.(map[string]any)

	s := &Subagent{
		ID:      firstString(m, "id", "target"),
		Name:    firstString(m, "label", "name", "target"),
		Status:  strings.ToLower(firstString(m, "status", "state")),
		Summary: firstString(m, "summary", "role", "scope"),
		Raw:     item,
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("subagent-%d", index)
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("Subagent %d", index+1)
	}
	if s.Status == "" {
		s.Status = "unknown"
	}
	if s.Summary == "" {
		s.Summary = "No scope summary provided"
	}
	if v := firstString(m, "lastActivity", "last_activity", "updatedAt", "updated_at"); v != "" {
		s.LastActivity = &v
	}
	return s
}

// firstString returns the first key holding a non-empty string or a
// non-zero number.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

package automation

import (
	"bytes"
	"encoding/json"
	"time"
)

// Metadata holds the per-task attributes the rule engine matches on that are
// not part of the task record itself.
type Metadata struct {
	TaskID         string    `json:"taskId"`
	Tags           []string  `json:"tags"`
	Project        *string   `json:"project"`
	Type           *string   `json:"type"`
	ManualOverride *string   `json:"manualOverride"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

func (o OptionalString) normalized() *string {
	var v string
	if o.Value != nil {
		v = NormalizeText(*o.Value)
	}
	return &v
}

// SetString returns an OptionalString holding v.
func SetString(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// MetadataPatch overlays a subset of metadata fields. A supplied null project
// or type is stored as the empty string; a supplied null ManualOverride
// clears the override.
type MetadataPatch struct {
	Tags           []string       `json:"tags,omitempty"`
	Project        OptionalString `json:"project"`
	Type           OptionalString `json:"type"`
	ManualOverride OptionalString `json:"manualOverride"`
}

// IsEmpty reports whether the patch supplies no field at all.
func (p MetadataPatch) IsEmpty() bool {
	return p.Tags == nil && !p.Project.Set && !p.Type.Set && !p.ManualOverride.Set
}

// Apply overlays the patch on prev, or on a fresh record when prev is nil,
// and returns the new record.
func (p MetadataPatch) Apply(taskID string, prev *Metadata, now time.Time) *Metadata {
	next := &Metadata{TaskID: taskID, Tags: []string{}}
	if prev != nil {
		cp := *prev
		next = &cp
		next.TaskID = taskID
		if next.Tags == nil {
			next.Tags = []string{}
		}
	}
	if p.Tags != nil {
		next.Tags = NormalizeList(p.Tags)
	}
	if p.Project.Set {
		next.Project = p.Project.normalized()
	}
	if p.Type.Set {
		next.Type = p.Type.normalized()
	}
	if p.ManualOverride.Set {
		next.ManualOverride = p.ManualOverride.Value
	}
	next.UpdatedAt = now
	return next
}

package automation

import (
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultAgent        = "assistant"
	defaultRuleName     = "Untitled rule"
	defaultRulePriority = 50
)

// Rule routes tasks to an agent. Matcher slices are always normalized:
// lowercase, trimmed, no empty entries.
type Rule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	Priority  int       `json:"priority"`
	AssignTo  string    `json:"assignTo"`
	Keywords  []string  `json:"keywords"`
	Tags      []string  `json:"tags"`
	Projects  []string  `json:"projects"`
	Types     []string  `json:"types"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RulePatch carries the fields of a create or update request. Nil means the
// field was not supplied.
type RulePatch struct {
	ID       *string  `json:"id,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	AssignTo *string  `json:"assignTo,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Projects []string `json:"projects,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// NewRule builds a rule from a create request, filling defaults for absent
// or empty fields.
func NewRule(p RulePatch, now time.Time) *Rule {
	r := &Rule{
		ID:        "rule-" + ulid.Make().String(),
		Name:      defaultRuleName,
		Enabled:   true,
		Priority:  defaultRulePriority,
		AssignTo:  DefaultAgent,
		Keywords:  NormalizeList(p.Keywords),
		Tags:      NormalizeList(p.Tags),
		Projects:  NormalizeList(p.Projects),
		Types:     NormalizeList(p.Types),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.ID != nil && *p.ID != "" {
		r.ID = *p.ID
	}
	if p.Name != nil && *p.Name != "" {
		r.Name = *p.Name
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.AssignTo != nil && *p.AssignTo != "" {
		r.AssignTo = *p.AssignTo
	}
	return r
}

// Apply merges the supplied fields onto r. Supplied matcher lists are
// normalized and replace the previous list, even when empty.
func (p RulePatch) Apply(r *Rule, now time.Time) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.AssignTo != nil {
		r.AssignTo = *p.AssignTo
	}
	if p.Keywords != nil {
		r.Keywords = NormalizeList(p.Keywords)
	}
	if p.Tags != nil {
		r.Tags = NormalizeList(p.Tags)
	}
	if p.Projects != nil {
		r.Projects = NormalizeList(p.Projects)
	}
	if p.Types != nil {
		r.Types = NormalizeList(p.Types)
	}
	r.UpdatedAt = now
}

// DefaultRules is the rule set installed the first time rules are listed.
func DefaultRules(now time.Time) []*Rule {
	seed := []Rule{
		{
			ID:       "rule-work-friday",
			Name:     "Work / Business / Client / Ops / Admin → FRIDAY",
			Priority: 100,
			AssignTo: "FRIDAY",
			Keywords: []string{"work", "business", "client", "ops", "admin"},
			Tags:     []string{"work", "business", "client", "ops", "admin"},
		},
		{
			ID:       "rule-personal-veronica",
			Name:     "Personal / Home / Errand / Social → VERONICA",
			Priority: 90,
			AssignTo: "VERONICA",
			Keywords: []string{"personal", "home", "errand", "social"},
			Tags:     []string{"personal", "home", "errand", "social"},
		},
		{
			ID:       "rule-pc1-karen",
			Name:     "PC1 / Files / Browser / Local Machine 1 → KAREN",
			Priority: 80,
			AssignTo: "KAREN",
			Keywords: []string{"pc1", "files", "browser", "local machine 1"},
			Tags:     []string{"pc1", "files", "browser", "local-machine-1"},
			Projects: []string{"pc1"},
			Types:    []string{"pc1"},
		},
		{
			ID:       "rule-pc2-tadashi",
			Name:     "PC2 / Files / Browser / Local Machine 2 → TADASHI",
			Priority: 70,
			AssignTo: "TADASHI",
			Keywords: []string{"pc2", "files", "browser", "local machine 2"},
			Tags:     []string{"pc2", "files", "browser", "local-machine-2"},
			Projects: []string{"pc2"},
			Types:    []string{"pc2"},
		},
	}
	rules := make([]*Rule, len(seed))
	for i := range seed {
		r := seed[i]
		r.Enabled = true
		if r.Projects == nil {
			r.Projects = []string{}
		}
		if r.Types == nil {
			r.Types = []string{}
		}
		r.CreatedAt = now
		r.UpdatedAt = now
		rules[i] = &r
	}
	return rules
}

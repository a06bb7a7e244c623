package automation

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

const (
	manualOverrideScore = 999
	manualOverrideName  = "Manual override"
	fallbackReason      = "No automation rule matched. Falling back to assistant."
	reasonSeparator     = " • "
)

// Weights scales each kind of match into the rule score.
type Weights struct {
	Keyword int
	Tag     int
	Project int
	Type    int
	// ConfidenceScale is the score at which confidence saturates at 1.
	ConfidenceScale float64
}

var DefaultWeights = Weights{
	Keyword:         3,
	Tag:             4,
	Project:         5,
	Type:            5,
	ConfidenceScale: 12,
}

// Draft is the task-like input an evaluation runs against. Nil pointers and
// slices are treated as absent.
type Draft struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Project        *string  `json:"project,omitempty"`
	Type           *string  `json:"type,omitempty"`
	ManualOverride *string  `json:"manualOverride,omitempty"`
}

// Result is the outcome of evaluating a draft.
type Result struct {
	MatchedRuleID   *string `json:"matchedRuleId"`
	MatchedRuleName *string `json:"matchedRuleName"`
	AssignedAgent   string  `json:"assignedAgent"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
	Score           int     `json:"score"`
}

type candidate struct {
	rule    *Rule
	score   int
	reasons []string
}

// Evaluate picks the agent for draft from rules. It is pure: the same rules
// and draft always produce the same result.
func Evaluate(rules []*Rule, draft Draft, w Weights) Result {
	if draft.ManualOverride != nil && *draft.ManualOverride != "" {
		override := *draft.ManualOverride
		name := manualOverrideName
		return Result{
			MatchedRuleName: &name,
			AssignedAgent:   override,
			Confidence:      1,
			Reason:          fmt.Sprintf("Manual override set to %s", override),
			Score:           manualOverrideScore,
		}
	}

	text := strings.TrimSpace(normalizePtr(draft.Title) + " " + normalizePtr(draft.Description))
	tags := NormalizeList(draft.Tags)
	project := normalizePtr(draft.Project)
	typ := normalizePtr(draft.Type)

	var candidates []candidate
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		c := scoreRule(rule, text, tags, project, typ, w)
		if c.score > 0 {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return Result{
			AssignedAgent: DefaultAgent,
			Confidence:    0,
			Reason:        fallbackReason,
			Score:         0,
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.rule.Priority, a.rule.Priority)
	})

	best := candidates[0]
	id, name := best.rule.ID, best.rule.Name
	return Result{
		MatchedRuleID:   &id,
		MatchedRuleName: &name,
		AssignedAgent:   best.rule.AssignTo,
		Confidence:      confidence(best.score, w),
		Reason:          strings.Join(best.reasons, reasonSeparator),
		Score:           best.score,
	}
}

func scoreRule(rule *Rule, text string, tags []string, project, typ string, w Weights) candidate {
	var keywordHits, tagHits []string
	for _, k := range rule.Keywords {
		if strings.Contains(text, k) {
			keywordHits = append(keywordHits, k)
		}
	}
	for _, t := range rule.Tags {
		if slices.Contains(tags, t) {
			tagHits = append(tagHits, t)
		}
	}
	projectHit := project != "" && slices.Contains(rule.Projects, project)
	typeHit := typ != "" && slices.Contains(rule.Types, typ)

	c := candidate{rule: rule}
	c.score = len(keywordHits)*w.Keyword + len(tagHits)*w.Tag
	if len(keywordHits) > 0 {
		c.reasons = append(c.reasons, "keywords: "+strings.Join(keywordHits, ", "))
	}
	if len(tagHits) > 0 {
		c.reasons = append(c.reasons, "tags: "+strings.Join(tagHits, ", "))
	}
	if projectHit {
		c.score += w.Project
		c.reasons = append(c.reasons, "project: "+project)
	}
	if typeHit {
		c.score += w.Type
		c.reasons = append(c.reasons, "type: "+typ)
	}
	return c
}

func confidence(score int, w Weights) float64 {
	if w.ConfidenceScale <= 0 {
		return 1
	}
	return math.Min(1, float64(score)/w.ConfidenceScale)
}

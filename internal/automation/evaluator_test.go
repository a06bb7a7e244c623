package automation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func defaultRules() []*Rule {
	return DefaultRules(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestEvaluateDefaultRules(t *testing.T) {
	tests := []struct {
		name       string
		draft      Draft
		wantAgent  string
		wantRuleID string
		wantScore  int
		wantReason string
	}{
		{
			name:       "keyword in title",
			draft:      Draft{Title: ptr("Need help with client invoice"), Tags: []string{}},
			wantAgent:  "FRIDAY",
			wantRuleID: "rule-work-friday",
			wantScore:  3,
			wantReason: "keywords: client",
		},
		{
			name:       "tag only",
			draft:      Draft{Title: ptr(""), Description: ptr(""), Tags: []string{"home"}, Project: ptr(""), Type: ptr("")},
			wantAgent:  "VERONICA",
			wantRuleID: "rule-personal-veronica",
			wantScore:  4,
			wantReason: "tags: home",
		},
		{
			name:       "project only",
			draft:      Draft{Project: ptr("pc1")},
			wantAgent:  "KAREN",
			wantRuleID: "rule-pc1-karen",
			wantScore:  5,
			wantReason: "project: pc1",
		},
		{
			name:       "combined reasons",
			draft:      Draft{Title: ptr("Sort PC2 files"), Tags: []string{"PC2"}, Type: ptr(" pc2 ")},
			wantAgent:  "TADASHI",
			wantRuleID: "rule-pc2-tadashi",
			wantScore:  3*2 + 4 + 5,
			wantReason: "keywords: pc2, files • tags: pc2 • type: pc2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(defaultRules(), tt.draft, DefaultWeights)
			assert.Equal(t, tt.wantAgent, res.AssignedAgent)
			require.NotNil(t, res.MatchedRuleID)
			assert.Equal(t, tt.wantRuleID, *res.MatchedRuleID)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Contains(t, res.Reason, tt.wantReason)
		})
	}
}

func TestEvaluateManualOverride(t *testing.T) {
	res := Evaluate(defaultRules(), Draft{
		Title:          ptr("client work for business"),
		ManualOverride: ptr("scout"),
	}, DefaultWeights)

	assert.Equal(t, "scout", res.AssignedAgent)
	require.NotNil(t, res.MatchedRuleName)
	assert.Equal(t, "Manual override", *res.MatchedRuleName)
	assert.Nil(t, res.MatchedRuleID)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, 999, res.Score)
	assert.Equal(t, "Manual override set to scout", res.Reason)
}

func TestEvaluateEmptyOverrideIsIgnored(t *testing.T) {
	res := Evaluate(defaultRules(), Draft{Title: ptr("client"), ManualOverride: ptr("")}, DefaultWeights)
	assert.Equal(t, "FRIDAY", res.AssignedAgent)
}

func TestEvaluateFallback(t *testing.T) {
	res := Evaluate(defaultRules(), Draft{}, DefaultWeights)

	assert.Equal(t, "assistant", res.AssignedAgent)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, 0, res.Score)
	assert.Nil(t, res.MatchedRuleID)
	assert.Nil(t, res.MatchedRuleName)
	assert.Equal(t, "No automation rule matched. Falling back to assistant.", res.Reason)
}

func TestEvaluateSkipsDisabledRules(t *testing.T) {
	rules := defaultRules()
	rules[0].Enabled = false

	res := Evaluate(rules, Draft{Title: ptr("client invoice")}, DefaultWeights)
	assert.Equal(t, "assistant", res.AssignedAgent)
}

func TestEvaluateTieBreaksOnPriority(t *testing.T) {
	now := time.Now()
	low := NewRule(RulePatch{Name: ptr("low"), Priority: intPtr(10), AssignTo: ptr("LOW"), Keywords: []string{"deploy"}}, now)
	high := NewRule(RulePatch{Name: ptr("high"), Priority: intPtr(20), AssignTo: ptr("HIGH"), Keywords: []string{"deploy"}}, now)

	res := Evaluate([]*Rule{low, high}, Draft{Title: ptr("deploy")}, DefaultWeights)
	assert.Equal(t, "HIGH", res.AssignedAgent)

	// A higher score beats a higher priority.
	low.Tags = []string{"infra"}
	res = Evaluate([]*Rule{low, high}, Draft{Title: ptr("deploy"), Tags: []string{"infra"}}, DefaultWeights)
	assert.Equal(t, "LOW", res.AssignedAgent)
}

func TestEvaluateTieBreaksOnExtremePriorities(t *testing.T) {
	now := time.Now()
	low := NewRule(RulePatch{Name: ptr("lo"), Priority: intPtr(-10), AssignTo: ptr("LO"), Keywords: []string{"x"}}, now)
	high := NewRule(RulePatch{Name: ptr("hi"), Priority: intPtr(math.MaxInt), AssignTo: ptr("HI"), Keywords: []string{"x"}}, now)

	for _, rules := range [][]*Rule{{low, high}, {high, low}} {
		res := Evaluate(rules, Draft{Title: ptr("x")}, DefaultWeights)
		assert.Equal(t, "HI", res.AssignedAgent)
	}

	lowest := NewRule(RulePatch{Name: ptr("min"), Priority: intPtr(math.MinInt), AssignTo: ptr("MIN"), Keywords: []string{"x"}}, now)
	res := Evaluate([]*Rule{lowest, low}, Draft{Title: ptr("x")}, DefaultWeights)
	assert.Equal(t, "LO", res.AssignedAgent)
}

func TestEvaluateIsMonotonic(t *testing.T) {
	base := Draft{Title: ptr("call the client")}
	more := Draft{Title: ptr("call the client about ops admin")}

	r1 := Evaluate(defaultRules(), base, DefaultWeights)
	r2 := Evaluate(defaultRules(), more, DefaultWeights)
	assert.Equal(t, *r1.MatchedRuleID, *r2.MatchedRuleID)
	assert.Greater(t, r2.Score, r1.Score)
	assert.GreaterOrEqual(t, r2.Confidence, r1.Confidence)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	draft := Draft{Title: ptr("browser files"), Tags: []string{"files"}}
	first := Evaluate(defaultRules(), draft, DefaultWeights)
	for range 10 {
		assert.Equal(t, first, Evaluate(defaultRules(), draft, DefaultWeights))
	}
	// Both machine rules tie on score; the higher priority one wins.
	assert.Equal(t, "KAREN", first.AssignedAgent)
}

func TestConfidenceSaturates(t *testing.T) {
	res := Evaluate(defaultRules(), Draft{
		Title: ptr("work business client ops admin"),
		Tags:  []string{"work", "business"},
	}, DefaultWeights)
	assert.Equal(t, 1.0, res.Confidence)

	res = Evaluate(defaultRules(), Draft{Title: ptr("client")}, DefaultWeights)
	assert.InDelta(t, 0.25, res.Confidence, 1e-9)
}

func TestCustomWeights(t *testing.T) {
	w := DefaultWeights
	w.Keyword = 1
	w.ConfidenceScale = 2
	res := Evaluate(defaultRules(), Draft{Title: ptr("client")}, w)
	assert.Equal(t, 1, res.Score)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
}

func intPtr(i int) *int { return &i }

package team

import "strings"

type display struct {
	emoji    string
	category Category
	skills   []string
}

var knownMembers = map[string]display{
	"henry": {"👨‍💼", CategoryChief, []string{"Leadership", "Strategy", "Coordination"}},
	"scout": {"🔭", CategoryInput, []string{"Web Search", "Research", "Data Mining"}},
	"echo":  {"🔊", CategoryInput, []string{"Event Monitoring", "Notifications", "Alerts"}},
	"quill": {"✍️", CategoryOutput, []string{"Documentation", "Content", "Communication"}},
	"pixel": {"🎨", CategoryOutput, []string{"UI Design", "Graphics", "Visuals"}},
	"codex": {"📚", CategoryMeta, []string{"Memory", "Indexing", "Retrieval"}},
	"alex":  {"👨‍🎨", CategoryOutput, []string{"Automation", "Tasks", "Integration"}},
}

const (
	fallbackEmoji    = "🤖"
	fallbackCategory = CategoryOutput
)

// WithDisplayDefaults returns a copy of m whose empty emoji, category and
// skills are filled from the known member table, or from generic fallbacks
// for unknown names. Stored fields always win.
func (m *Member) WithDisplayDefaults() *Member {
	out := *m
	d, known := knownMembers[strings.ToLower(strings.TrimSpace(m.Name))]
	if out.Emoji == "" {
		out.Emoji = fallbackEmoji
		if known {
			out.Emoji = d.emoji
		}
	}
	if out.Category == "" {
		out.Category = fallbackCategory
		if known {
			out.Category = d.category
		}
	}
	if len(out.Skills) == 0 {
		out.Skills = []string{}
		if known {
			out.Skills = append(out.Skills, d.skills...)
		}
	}
	return &out
}

package calendar

import (
	"time"

	"github.com/oklog/ulid/v2"
)

const DefaultSource = "local"

type Event struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	StartsAt  time.Time  `yaml:"starts_at" json:"starts_at"`
	EndsAt    *time.Time `yaml:"ends_at,omitempty" json:"ends_at"`
	Source    string     `yaml:"source" json:"source"`
	Details   string     `yaml:"details" json:"details"`
	Color     string     `yaml:"color" json:"color"`
	CreatedAt time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time  `yaml:"updated_at" json:"updated_at"`
}

func New(title string, startsAt time.Time) *Event {
	now := time.Now().UTC()
	return &Event{
		ID:        ulid.Make().String(),
		Title:     title,
		StartsAt:  startsAt.UTC(),
		Source:    DefaultSource,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Window bounds a listing. Zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether e starts inside [From, To).
func (w Window) Contains(e *Event) bool {
	if !w.From.IsZero() && e.StartsAt.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !e.StartsAt.Before(w.To) {
		return false
	}
	return true
}

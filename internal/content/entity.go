package content

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

type Stage string

const (
	StageIdea      Stage = "idea"
	StageScripting Stage = "scripting"
	StageThumbnail Stage = "thumbnail"
	StageFilming   Stage = "filming"
	StageEditing   Stage = "editing"
	StageDone      Stage = "done"
)

var stages = []Stage{StageIdea, StageScripting, StageThumbnail, StageFilming, StageEditing, StageDone}

func (s Stage) Valid() bool { return slices.Contains(stages, s) }

const DefaultOwner = "assistant"

// Item is one piece of content moving through the production pipeline.
type Item struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	Stage     Stage     `yaml:"stage" json:"stage"`
	Notes     string    `yaml:"notes" json:"notes"`
	ImageURL  string    `yaml:"image_url" json:"image_url"`
	Owner     string    `yaml:"owner" json:"owner"`
	Platform  string    `yaml:"platform" json:"platform"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

func New(title string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:        ulid.Make().String(),
		Title:     title,
		Stage:     StageIdea,
		Owner:     DefaultOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

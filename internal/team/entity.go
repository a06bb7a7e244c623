package team

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
	StatusAway   Status = "away"
)

var statuses = []Status{StatusActive, StatusIdle, StatusAway}

func (s Status) Valid() bool { return slices.Contains(statuses, s) }

type Category string

const (
	CategoryChief  Category = "chief"
	CategoryInput  Category = "input"
	CategoryOutput Category = "output"
	CategoryMeta   Category = "meta"
)

var categories = []Category{CategoryChief, CategoryInput, CategoryOutput, CategoryMeta}

// Valid accepts the empty category, which display defaults fill in.
func (c Category) Valid() bool { return c == "" || slices.Contains(categories, c) }

type Member struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Role      string    `yaml:"role" json:"role"`
	Status    Status    `yaml:"status" json:"status"`
	Emoji     string    `yaml:"emoji" json:"emoji"`
	Category  Category  `yaml:"category" json:"category"`
	Skills    []string  `yaml:"skills" json:"skills"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

func New(name, role string) *Member {
	now := time.Now().UTC()
	return &Member{
		ID:        ulid.Make().String(),
		Name:      name,
		Role:      role,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

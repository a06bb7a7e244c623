package taskrun

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxRuns is the number of runs kept; older ones are pruned on Push.
const MaxRuns = 500

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type AssignedToType string

const (
	AssignedToMe        AssignedToType = "me"
	AssignedToAssistant AssignedToType = "assistant"
	AssignedToSubagent  AssignedToType = "subagent"
)

// TaskRun is one audit entry describing what happened to a task.
type TaskRun struct {
	ID             string         `yaml:"id" json:"id"`
	TaskID         string         `yaml:"task_id,omitempty" json:"taskId,omitempty"`
	Title          string         `yaml:"title" json:"title"`
	Action         Action         `yaml:"action" json:"action"`
	Assignee       string         `yaml:"assignee" json:"assignee"`
	AssignedToType AssignedToType `yaml:"assigned_to_type" json:"assignedToType"`
	Status         Status         `yaml:"status" json:"status"`
	Message        string         `yaml:"message,omitempty" json:"message,omitempty"`
	CreatedAt      time.Time      `yaml:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `yaml:"updated_at" json:"updatedAt"`
}

type Input struct {
	TaskID   string
	Title    string
	Action   Action
	Assignee string
	Status   Status
	Message  string
}

// New builds a run for in. An empty assignee is recorded as the assistant.
func New(in Input) *TaskRun {
	now := time.Now().UTC()
	assignee := in.Assignee
	if assignee == "" {
		assignee = "assistant"
	}
	return &TaskRun{
		ID:             ulid.Make().String(),
		TaskID:         in.TaskID,
		Title:          in.Title,
		Action:         in.Action,
		Assignee:       assignee,
		AssignedToType: AssigneeType(assignee),
		Status:         in.Status,
		Message:        in.Message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func AssigneeType(assignee string) AssignedToType {
	switch strings.ToLower(assignee) {
	case "me", "user", "owner":
		return AssignedToMe
	case "assistant":
		return AssignedToAssistant
	default:
		return AssignedToSubagent
	}
}

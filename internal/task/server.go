package task

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/internal/eventbus"
	"github.com/missionctl/missionctl/internal/taskrun"
	"github.com/missionctl/missionctl/pkg/cerr"
)

type Server struct {
	repo       Repository
	automation *automation.Service
	runs       taskrun.Recorder
	bus        *eventbus.Bus
}

func NewServer(repo Repository, engine *automation.Service, runs taskrun.Recorder, bus *eventbus.Bus) *Server {
	return &Server{
		repo:       repo,
		automation: engine,
		runs:       runs,
		bus:        bus,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/tasks", s.list)
	r.Post("/tasks", s.create)
	r.Put("/tasks", s.update)
	r.Delete("/tasks", s.delete)
}

// automationFields are the routing attributes a task request may carry
// alongside the task itself.
type automationFields struct {
	Tags           []string                  `json:"tags"`
	Project        automation.OptionalString `json:"project"`
	Type           automation.OptionalString `json:"type"`
	ManualOverride automation.OptionalString `json:"manualOverride"`
	Automate       *bool                     `json:"automate"`
}

func (f automationFields) metadata() automation.MetadataPatch {
	return automation.MetadataPatch{
		Tags:           f.Tags,
		Project:        f.Project,
		Type:           f.Type,
		ManualOverride: f.ManualOverride,
	}
}

type createRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
	automationFields
}

type updateRequest struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Assignee    *string    `json:"assignee"`
	Status      *Status    `json:"status"`
	Priority    *Priority  `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
	automationFields
}

func (s *Server) list(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) create(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Title == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Title is required", nil)
		return
	}

	t := New(req.Title)
	t.Description = req.Description
	t.DueAt = req.DueAt
	if req.Assignee != "" {
		t.Assignee = req.Assignee
	}
	if req.Status != "" {
		t.Status = req.Status
	}
	if req.Priority != "" {
		t.Priority = req.Priority
	}
	if err := validate(t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	automate := req.Assignee == "" || (req.Automate != nil && *req.Automate)
	routed, message, err := s.route(ctx, t, req.metadata(), automate)
	if err != nil {
		s.discard(ctx, t.ID)
		cerr.SetJSONError(ctx, err)
		return
	}
	t = routed

	s.record(ctx, t, taskrun.ActionCreate, taskrun.StatusSuccess, message)
	s.bus.PublishNew(eventbus.TaskCreated, t.ID, "", map[string]string{"title": t.Title})
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) update(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.ID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "ID is required", nil)
		return
	}

	t, err := s.repo.Update(ctx, req.ID, func(t *Task) error {
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.Assignee != nil {
			t.Assignee = *req.Assignee
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
		if req.Priority != nil {
			t.Priority = *req.Priority
		}
		if req.DueAt != nil {
			t.DueAt = req.DueAt
		}
		t.UpdatedAt = time.Now().UTC()
		return validate(t)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	meta := req.metadata()
	automate := (req.Automate != nil && *req.Automate) || (!meta.IsEmpty() && req.Assignee == nil)
	routed, message, err := s.route(ctx, t, meta, automate)
	if err != nil {
		// The edit is already stored. Report it with a failed run so a retry
		// only has to redo the routing.
		slog.WarnContext(ctx, "task automation failed", "task_id", t.ID, "error", err)
		s.record(ctx, t, taskrun.ActionUpdate, taskrun.StatusError, "Automation failed")
		s.bus.PublishNew(eventbus.TaskUpdated, t.ID, "", map[string]string{"title": t.Title})
		cerr.SetJSONError(ctx, err)
		return
	}
	t = routed

	s.record(ctx, t, taskrun.ActionUpdate, taskrun.StatusSuccess, message)
	s.bus.PublishNew(eventbus.TaskUpdated, t.ID, "", map[string]string{"title": t.Title})
	cerr.SetJSONResponse(ctx, t)
}

// route stores the routing metadata and, when automate is set, assigns the
// task to the agent the rules pick. It returns the task as stored and a run
// message describing the decision.
func (s *Server) route(ctx context.Context, t *Task, meta automation.MetadataPatch, automate bool) (*Task, string, error) {
	if !meta.IsEmpty() {
		if _, err := s.automation.UpsertMetadata(ctx, t.ID, meta); err != nil {
			return nil, "", err
		}
	}
	if !automate {
		return t, "", nil
	}

	d, err := s.automation.AssignTask(ctx, t.ID, nil)
	if err != nil {
		return nil, "", err
	}
	if d == nil {
		return nil, "", cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	t, err = s.repo.Update(ctx, t.ID, func(t *Task) error {
		t.Assignee = d.AssignedAgent
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	s.bus.PublishNew(eventbus.TaskAssigned, t.ID, "", map[string]string{
		"agent": d.AssignedAgent,
		"title": t.Title,
	})
	return t, "Automation: " + d.Reason, nil
}

func (s *Server) delete(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "ID is required", nil)
		return
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.automation.ForgetTask(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to drop automation state", "task_id", id, "error", err)
	}

	s.record(ctx, t, taskrun.ActionDelete, taskrun.StatusSuccess, "")
	s.bus.PublishNew(eventbus.TaskDeleted, id, "", map[string]string{"title": t.Title})
}

// discard removes a task whose creation could not be completed.
func (s *Server) discard(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to roll back task", "task_id", id, "error", err)
	}
	if err := s.automation.ForgetTask(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to drop automation state", "task_id", id, "error", err)
	}
}

func (s *Server) record(ctx context.Context, t *Task, action taskrun.Action, status taskrun.Status, message string) {
	_, err := s.runs.Record(ctx, taskrun.Input{
		TaskID:   t.ID,
		Title:    t.Title,
		Action:   action,
		Assignee: t.Assignee,
		Status:   status,
		Message:  message,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record task run", "task_id", t.ID, "error", err)
	}
}

func validate(t *Task) error {
	if t.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "Title is required", nil)
	}
	if !t.Status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid status: "+string(t.Status), nil)
	}
	if !t.Priority.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid priority: "+string(t.Priority), nil)
	}
	return nil
}

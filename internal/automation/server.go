package automation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/internal/eventbus"
	"github.com/missionctl/missionctl/internal/subagent"
	"github.com/missionctl/missionctl/internal/taskrun"
	"github.com/missionctl/missionctl/pkg/cerr"
)

const dispatchActionable = "Verify OPENCLAW_TOOLS_ENDPOINT and confirm target subagent exists via /api/subagents."

type Server struct {
	service   *Service
	tasks     TaskStore
	runs      taskrun.Recorder
	subagents *subagent.Client
	bus       *eventbus.Bus
}

func NewServer(service *Service, tasks TaskStore, runs taskrun.Recorder, subagents *subagent.Client, bus *eventbus.Bus) *Server {
	return &Server{
		service:   service,
		tasks:     tasks,
		runs:      runs,
		subagents: subagents,
		bus:       bus,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Route("/task-automation-rules", func(r chi.Router) {
		r.Get("/", s.listRules)
		r.Post("/", s.createRule)
		r.Put("/", s.updateRule)
		r.Delete("/", s.deleteRule)
	})
	r.Route("/task-automation", func(r chi.Router) {
		r.Post("/preview", s.preview)
		r.Post("/assign", s.assign)
		r.Post("/dispatch", s.dispatch)
		r.Get("/decisions", s.decisions)
		r.Get("/metadata", s.getMetadata)
		r.Put("/metadata", s.putMetadata)
	})
}

func (s *Server) listRules(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rules, err := s.service.ListRules(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, rules)
}

func (s *Server) createRule(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p RulePatch
	if err := cerr.BindJSON(r, &p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	rule, err := s.service.CreateRule(ctx, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, rule)
}

func (s *Server) updateRule(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p RulePatch
	if err := cerr.BindJSON(r, &p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if p.ID == nil || *p.ID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "id is required", nil)
		return
	}
	rule, err := s.service.UpdateRule(ctx, *p.ID, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, rule)
}

func (s *Server) deleteRule(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "id is required", nil)
		return
	}
	ok, err := s.service.DeleteRule(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "Rule not found", nil)
	}
}

func (s *Server) preview(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var draft Draft
	if err := cerr.BindJSON(r, &draft); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.service.Preview(ctx, draft)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

type assignRequest struct {
	TaskID      string         `json:"taskId"`
	Metadata    *MetadataPatch `json:"metadata"`
	ApplyToTask *bool          `json:"applyToTask"`
}

func (s *Server) assign(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.TaskID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "taskId is required", nil)
		return
	}
	if req.Metadata != nil && !req.Metadata.IsEmpty() {
		if _, err := s.service.UpsertMetadata(ctx, req.TaskID, *req.Metadata); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	}

	d, err := s.service.AssignTask(ctx, req.TaskID, nil)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if d == nil {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "Task not found", nil)
		return
	}

	if req.ApplyToTask == nil || *req.ApplyToTask {
		if err := s.ApplyDecision(ctx, d); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	}
	cerr.SetJSONResponse(ctx, d)
}

// ApplyDecision writes the decided agent onto the task, records a run and
// announces the assignment.
func (s *Server) ApplyDecision(ctx context.Context, d *Decision) error {
	if err := s.tasks.SetAssignee(ctx, d.TaskID, d.AssignedAgent); err != nil {
		return err
	}
	title := d.TaskID
	if task, err := s.tasks.LookupTask(ctx, d.TaskID); err == nil && task != nil {
		title = task.Title
	}
	if _, err := s.runs.Record(ctx, taskrun.Input{
		TaskID:   d.TaskID,
		Title:    title,
		Action:   taskrun.ActionUpdate,
		Assignee: d.AssignedAgent,
		Status:   taskrun.StatusSuccess,
		Message:  "Automation: " + d.Reason,
	}); err != nil {
		slog.WarnContext(ctx, "failed to record task run", "task_id", d.TaskID, "error", err)
	}
	s.bus.PublishNew(eventbus.TaskAssigned, d.TaskID, "", map[string]string{
		"agent": d.AssignedAgent,
		"title": title,
	})
	return nil
}

type dispatchRequest struct {
	TaskID string `json:"taskId"`
	Target string `json:"target"`
}

type dispatchResponse struct {
	Target string `json:"target"`
	Result any    `json:"result"`
}

func (s *Server) dispatch(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req dispatchRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.TaskID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "taskId is required", nil)
		return
	}
	task, err := s.tasks.LookupTask(ctx, req.TaskID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if task == nil {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "Task not found", nil)
		return
	}

	target := req.Target
	if target == "" {
		d, err := s.service.GetDecision(ctx, req.TaskID)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		if d != nil {
			target = d.AssignedAgent
		}
	}
	if target == "" {
		target = task.Assignee
	}
	if target == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "No assigned target found. Run assignment first.", nil)
		return
	}

	result, err := s.subagents.Steer(ctx, target, DispatchSummary(task, target))
	if err != nil {
		fallback := fmt.Sprintf("Dispatch failed (%s). Check OpenClaw tools endpoint and target subagent name.", subagent.StatusText(err))
		cerr.SetJSONError(ctx, subagent.ToError(err, fallback).WithActionable(dispatchActionable))
		return
	}
	cerr.SetJSONResponse(ctx, dispatchResponse{Target: target, Result: result})
}

// DispatchSummary is the message a subagent receives for task.
func DispatchSummary(task *TaskRecord, target string) string {
	summary := fmt.Sprintf("Task Dispatch\n#%s %s\nAssignee: %s\n", task.ID, task.Title, target)
	if task.Description != "" {
		summary += "Description: " + task.Description
	}
	return summary
}

func (s *Server) decisions(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if taskID := r.URL.Query().Get("taskId"); taskID != "" {
		d, err := s.service.GetDecision(ctx, taskID)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetJSONResponse(ctx, d)
		return
	}
	list, err := s.service.ListDecisions(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, list)
}

func (s *Server) getMetadata(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if taskID := r.URL.Query().Get("taskId"); taskID != "" {
		m, err := s.service.GetMetadata(ctx, taskID)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetJSONResponse(ctx, m)
		return
	}
	list, err := s.service.ListMetadata(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, list)
}

type metadataRequest struct {
	TaskID string `json:"taskId"`
	MetadataPatch
}

func (s *Server) putMetadata(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req metadataRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.TaskID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "taskId is required", nil)
		return
	}
	m, err := s.service.UpsertMetadata(ctx, req.TaskID, req.MetadataPatch)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, m)
}

package calendar

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/calendar", s.list)
	r.Post("/calendar", s.create)
	r.Put("/calendar", s.update)
	r.Delete("/calendar", s.delete)
}

type createRequest struct {
	Title    string     `json:"title"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Source   string     `json:"source"`
	Details  string     `json:"details"`
	Color    string     `json:"color"`
}

type updateRequest struct {
	ID       string     `json:"id"`
	Title    *string    `json:"title"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Source   *string    `json:"source"`
	Details  *string    `json:"details"`
	Color    *string    `json:"color"`
}

func (s *Server) list(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var w Window
	for _, bound := range []struct {
		key string
		dst *time.Time
	}{{"from", &w.From}, {"to", &w.To}} {
		raw := r.URL.Query().Get(bound.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid "+bound.key+" time", err)
			return
		}
		*bound.dst = t
	}

	events, err := s.repo.List(ctx, w)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, events)
}

func (s *Server) create(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Title == "" || req.StartsAt == nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Title and start time are required", nil)
		return
	}

	e := New(req.Title, *req.StartsAt)
	e.EndsAt = utc(req.EndsAt)
	e.Details = req.Details
	e.Color = req.Color
	if req.Source != "" {
		e.Source = req.Source
	}
	if err := validate(e); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Create(ctx, e); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, e)
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

	e, err := s.repo.Update(ctx, req.ID, func(e *Event) error {
		if req.Title != nil {
			e.Title = *req.Title
		}
		if req.StartsAt != nil {
			e.StartsAt = req.StartsAt.UTC()
		}
		if req.EndsAt != nil {
			e.EndsAt = utc(req.EndsAt)
		}
		if req.Source != nil {
			e.Source = *req.Source
		}
		if req.Details != nil {
			e.Details = *req.Details
		}
		if req.Color != nil {
			e.Color = *req.Color
		}
		e.UpdatedAt = time.Now().UTC()
		return validate(e)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, e)
}

func (s *Server) delete(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "ID is required", nil)
		return
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func validate(e *Event) error {
	if e.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "Title and start time are required", nil)
	}
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		return cerr.NewError(cerr.InvalidArgument, "End time must not be before start time", nil)
	}
	return nil
}

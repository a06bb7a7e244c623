package content

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
	r.Get("/content", s.list)
	r.Post("/content", s.create)
	r.Put("/content", s.update)
	r.Delete("/content", s.delete)
}

type createRequest struct {
	Title    string `json:"title"`
	Stage    Stage  `json:"stage"`
	Notes    string `json:"notes"`
	ImageURL string `json:"image_url"`
	Owner    string `json:"owner"`
	Platform string `json:"platform"`
}

type updateRequest struct {
	ID       string  `json:"id"`
	Title    *string `json:"title"`
	Stage    *Stage  `json:"stage"`
	Notes    *string `json:"notes"`
	ImageURL *string `json:"image_url"`
	Owner    *string `json:"owner"`
	Platform *string `json:"platform"`
}

func (s *Server) list(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, items)
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

	item := New(req.Title)
	item.Notes = req.Notes
	item.ImageURL = req.ImageURL
	item.Platform = req.Platform
	if req.Stage != "" {
		item.Stage = req.Stage
	}
	if req.Owner != "" {
		item.Owner = req.Owner
	}
	if err := validate(item); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Create(ctx, item); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, item)
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

	item, err := s.repo.Update(ctx, req.ID, func(i *Item) error {
		setIfPresent(&i.Title, req.Title)
		setIfPresent(&i.Notes, req.Notes)
		setIfPresent(&i.ImageURL, req.ImageURL)
		setIfPresent(&i.Owner, req.Owner)
		setIfPresent(&i.Platform, req.Platform)
		if req.Stage != nil {
			i.Stage = *req.Stage
		}
		i.UpdatedAt = time.Now().UTC()
		return validate(i)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, item)
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

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func validate(i *Item) error {
	if i.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "Title is required", nil)
	}
	if !i.Stage.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid stage: "+string(i.Stage), nil)
	}
	return nil
}

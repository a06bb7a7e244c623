package team

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
	r.Get("/team", s.list)
	r.Post("/team", s.create)
	r.Put("/team", s.update)
	r.Delete("/team", s.delete)
}

type createRequest struct {
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Status   Status   `json:"status"`
	Emoji    string   `json:"emoji"`
	Category Category `json:"category"`
	Skills   []string `json:"skills"`
}

type updateRequest struct {
	ID       string    `json:"id"`
	Name     *string   `json:"name"`
	Role     *string   `json:"role"`
	Status   *Status   `json:"status"`
	Emoji    *string   `json:"emoji"`
	Category *Category `json:"category"`
	Skills   []string  `json:"skills"`
}

func (s *Server) list(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	members, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	out := make([]*Member, len(members))
	for i, m := range members {
		out[i] = m.WithDisplayDefaults()
	}
	cerr.SetJSONResponse(ctx, out)
}

func (s *Server) create(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Name == "" || req.Role == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Name and role are required", nil)
		return
	}

	m := New(req.Name, req.Role)
	m.Emoji = req.Emoji
	m.Category = req.Category
	m.Skills = req.Skills
	if req.Status != "" {
		m.Status = req.Status
	}
	if err := validate(m); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Create(ctx, m); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, m.WithDisplayDefaults())
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

	m, err := s.repo.Update(ctx, req.ID, func(m *Member) error {
		if req.Name != nil {
			m.Name = *req.Name
		}
		if req.Role != nil {
			m.Role = *req.Role
		}
		if req.Status != nil {
			m.Status = *req.Status
		}
		if req.Emoji != nil {
			m.Emoji = *req.Emoji
		}
		if req.Category != nil {
			m.Category = *req.Category
		}
		if req.Skills != nil {
			m.Skills = req.Skills
		}
		m.UpdatedAt = time.Now().UTC()
		return validate(m)
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, m.WithDisplayDefaults())
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

func validate(m *Member) error {
	if m.Name == "" || m.Role == "" {
		return cerr.NewError(cerr.InvalidArgument, "Name and role are required", nil)
	}
	if !m.Status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid status: "+string(m.Status), nil)
	}
	if !m.Category.Valid() {
		return cerr.NewError(cerr.InvalidArgument, "invalid category: "+string(m.Category), nil)
	}
	return nil
}

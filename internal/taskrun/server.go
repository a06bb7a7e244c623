package taskrun

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/pkg/cerr"
)

const defaultListLimit = 20

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/task-runs", s.list)
}

func (s *Server) list(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "limit must be a positive integer", err)
			return
		}
		limit = min(n, MaxRuns)
	}
	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, runs)
}

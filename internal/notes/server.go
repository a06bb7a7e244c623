package notes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/pkg/cerr"
)

type Server struct {
	memory *Memory
	vault  *Vault
}

func NewServer(memory *Memory, vault *Vault) *Server {
	return &Server{memory: memory, vault: vault}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/memory", s.getMemory)
	r.Get("/vault", s.getVault)
	r.Put("/vault", s.putVault)
}

type fileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	HTML    string `json:"html,omitempty"`
}

func (s *Server) getMemory(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := r.URL.Query().Get("path")
	if p == "" {
		cerr.SetJSONResponse(ctx, s.memory.Tree())
		return
	}
	content, err := s.memory.Read(p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	respondFile(r, p, content)
}

func (s *Server) getVault(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if q := query.Get("q"); q != "" {
		results, err := s.vault.Search(ctx, q)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetJSONResponse(ctx, results)
		cerr.SetJSONField(ctx, "mode", "search")
		return
	}

	if p := query.Get("path"); p != "" {
		content, err := s.vault.Read(p)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		respondFile(r, p, content)
		return
	}

	tree, err := s.vault.Tree()
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tree)
	cerr.SetJSONField(ctx, "mode", "tree")
}

type putVaultRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

func (s *Server) putVault(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req putVaultRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Path == "" || req.Content == nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "path and content are required", nil)
		return
	}
	res, err := s.vault.Write(req.Path, *req.Content)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func respondFile(r *http.Request, p, content string) {
	ctx := r.Context()
	resp := fileResponse{Path: p, Content: content}
	if r.URL.Query().Get("render") == "html" {
		html, err := RenderHTML(content)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		resp.HTML = html
	}
	cerr.SetJSONResponse(ctx, resp)
}

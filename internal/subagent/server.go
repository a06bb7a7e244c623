package subagent

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/pkg/cerr"
)

type Server struct {
	client *Client
}

func NewServer(client *Client) *Server {
	return &Server{client: client}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/subagents", s.list)
	r.Post("/subagents", s.action)
}

// list never fails because of the upstream: the UI shows an empty roster
// with a notice instead.
func (s *Server) list(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subagents, err := s.client.List(ctx)
	if err != nil {
		slog.WarnContext(ctx, "subagent list unavailable", "error", err)
		cerr.SetJSONResponse(ctx, []*Subagent{})
		cerr.SetJSONField(ctx, "unavailable", true)
		cerr.SetJSONField(ctx, "message", unavailableMessage(err))
		return
	}
	cerr.SetJSONResponse(ctx, subagents)
	cerr.SetJSONField(ctx, "unavailable", false)
}

func unavailableMessage(err error) string {
	var upErr *UpstreamError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "OpenClaw tools endpoint returned 503"
	case errors.As(err, &upErr):
		return fmt.Sprintf("OpenClaw tools endpoint returned %d", upErr.Status)
	default:
		return "Could not reach OpenClaw tools endpoint."
	}
}

type actionRequest struct {
	Action  Action `json:"action"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (s *Server) action(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req actionRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !req.Action.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Unsupported action", nil)
		return
	}
	payload, err := s.client.Do(ctx, req.Action, req.Target, req.Message)
	if err != nil {
		cerr.SetJSONError(ctx, ToError(err, fmt.Sprintf("Subagent action failed (%s)", StatusText(err))))
		return
	}
	cerr.SetJSONResponse(ctx, payload)
}

// ToError converts a client error into an API error. fallback is used when
// the upstream gave no message of its own.
func ToError(err error, fallback string) *cerr.Error {
	var upErr *UpstreamError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return cerr.NewError(cerr.Unavailable, ErrNotConfigured.Error(), err)
	case errors.As(err, &upErr):
		msg := upErr.Message()
		if msg == "" {
			msg = fallback
		}
		return cerr.NewError(cerr.BadGateway, msg, err)
	default:
		return cerr.NewError(cerr.BadGateway, fallback, err)
	}
}

// StatusText is the upstream status code of err, or "unreachable".
func StatusText(err error) string {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return fmt.Sprint(upErr.Status)
	}
	return "unreachable"
}

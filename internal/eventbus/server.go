package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/pkg/cerr"
)

const keepAliveInterval = 25 * time.Second

// Server streams bus events to browsers as server-sent events.
type Server struct {
	bus *Bus
}

func NewServer(bus *Bus) *Server {
	return &Server{bus: bus}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/events", s.stream)
}

// stream sends every event, or only those listed in ?types=a,b, until the
// client disconnects.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var types []EventType
	for t := range strings.SplitSeq(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, EventType(t))
		}
	}

	rc := http.NewResponseController(w)
	subID, ch := s.bus.Subscribe(64, types...)
	defer s.bus.Unsubscribe(subID)

	cerr.MarkStreamed(ctx)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.WarnContext(ctx, "event stream not flushable", "error", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.ErrorContext(ctx, "failed to marshal event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

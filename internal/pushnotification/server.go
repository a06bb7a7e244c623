package pushnotification

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/internal/pushsubscription"
	"github.com/missionctl/missionctl/pkg/cerr"
)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	sender   *Sender
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, sender *Sender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		sender:   sender,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/push/vapid-public-key", s.getVapidPublicKey)
	r.Post("/push/subscriptions", s.register)
	r.Delete("/push/subscriptions", s.unregister)
	r.Post("/push/test", s.sendTest)
}

func (s *Server) getVapidPublicKey(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.vapidEnv.VAPIDPublicKey == "" {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"publicKey": s.vapidEnv.VAPIDPublicKey})
}

// registerRequest is the browser's PushSubscription.toJSON() shape.
type registerRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Server) register(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	switch {
	case req.Endpoint == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	case req.Keys.P256dh == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "keys.p256dh is required", nil)
		return
	case req.Keys.Auth == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "keys.auth is required", nil)
		return
	}

	// Re-registering an endpoint refreshes its keys in place.
	sub, err := s.repo.FindByEndpoint(ctx, req.Endpoint)
	switch {
	case err == nil:
	case cerr.IsCode(err, cerr.NotFound):
		sub = &pushsubscription.Subscription{
			ID:        ulid.Make().String(),
			Endpoint:  req.Endpoint,
			CreatedAt: time.Now().UTC(),
		}
	default:
		cerr.SetJSONError(ctx, err)
		return
	}
	sub.P256dhKey = req.Keys.P256dh
	sub.AuthKey = req.Keys.Auth
	if err := s.repo.Put(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sub)
}

func (s *Server) unregister(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	if err := s.repo.DeleteByEndpoint(ctx, endpoint); err != nil {
		cerr.SetJSONError(ctx, err)
	}
}

func (s *Server) sendTest(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.sender.Configured() {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	sent := s.sender.SendToAll(ctx, &NotificationPayload{
		Title: "Mission Control Test",
		Body:  "Push notifications are working!",
	})
	cerr.SetJSONResponse(ctx, map[string]int{"sent": sent})
}

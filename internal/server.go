package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/missionctl/missionctl/internal/auth"
	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/clog"
)

// Mounter registers a feature's routes on the /api router.
type Mounter interface {
	Mount(r chi.Router)
}

type Server struct {
	server     *http.Server
	env        *config.Env
	authServer *auth.Server
	routes     []Mounter
}

// NewServer serves routes behind the session check. The auth routes are the
// only ones reachable without a session.
func NewServer(env *config.Env, authServer *auth.Server, routes ...Mounter) *Server {
	return &Server{
		env:        env,
		authServer: authServer,
		routes:     routes,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(clog.WithChiFilter(quietSessionChecks)),
			cerr.NewJSONResponseChiMiddleware(),
		)
		s.authServer.Mount(r)
		r.Group(func(r chi.Router) {
			r.Use(s.authServer.RequireSession)
			for _, m := range s.routes {
				m.Mount(r)
			}
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker()))

	return h2c.NewHandler(cors.New(cors.Options{
		AllowedOrigins:   s.env.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux), &http2.Server{})
}

// quietSessionChecks drops the access line of successful GET /api/auth
// calls, which the dashboard makes on every page load.
func quietSessionChecks(r *http.Request, status int) bool {
	return r.Method != http.MethodGet || r.URL.Path != "/api/auth" || status >= http.StatusBadRequest
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of
// every request, so cancelling it ends open event streams before Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

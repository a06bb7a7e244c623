package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/clog"
)

const CookieName = "session"

type Server struct {
	env    *config.AuthEnv
	issuer *Issuer
}

func NewServer(env *config.AuthEnv) *Server {
	return &Server{
		env:    env,
		issuer: NewIssuer(env.SessionSecret, env.SessionTTL),
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Post("/auth", s.login)
	r.Delete("/auth", s.logout)
	r.Get("/auth", s.status)
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := cerr.BindJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Password == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Password required", nil)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.env.AdminPassword)) != 1 {
		slog.WarnContext(ctx, "rejected login attempt")
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "Invalid password", nil)
		return
	}

	token, _, err := s.issuer.Issue()
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.Internal, "Server error", err)
		return
	}
	http.SetCookie(w, s.cookie(token, int(s.env.SessionTTL/time.Second)))
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, s.cookie("", -1))
}

func (s *Server) status(_ http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), map[string]bool{"authenticated": s.authenticated(r)})
}

func (s *Server) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.env.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	if err := s.issuer.Verify(c.Value); err != nil {
		clog.AddAttribute(r.Context(), "session_error", err.Error())
		return false
	}
	return true
}

// RequireSession rejects requests without a valid session cookie. It must
// run inside the cerr JSON response middleware.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

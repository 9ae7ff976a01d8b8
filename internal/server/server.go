package server

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/handler"
	"github.com/dukerupert/taskhouse/internal/middleware"
	"github.com/dukerupert/taskhouse/internal/store"
	ws "github.com/dukerupert/taskhouse/internal/websocket"
)

// Options carries the settings the HTTP layer needs from the configuration.
type Options struct {
	SessionTTL    time.Duration
	StatsLocation *time.Location
	DefaultWeeks  int

	// TrustedProxies are the peers whose forwarding headers are believed
	// when keying the login rate limit.
	TrustedProxies []netip.Prefix
}

type Server struct {
	db           *database.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	memberH      *handler.MemberHandler
	taskH        *handler.TaskHandler
	statsH       *handler.StatsHandler
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	taskStore    *store.TaskStore
	statsStore   *store.StatsStore
	rateLimiter  *middleware.RateLimiter
	ipResolver   *middleware.IPResolver
	logger       *slog.Logger
}

func New(db *database.DB, opts Options, logger *slog.Logger) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.DefaultWeeks < 1 {
		opts.DefaultWeeks = 8
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	memberStore := store.NewMemberStore(db)
	taskStore := store.NewTaskStore(db)
	statsStore := store.NewStatsStore(db, opts.StatsLocation)

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, opts.SessionTTL, logger.With("component", "auth")),
		memberH:      handler.NewMemberHandler(memberStore, taskStore, hub, logger.With("component", "member")),
		taskH:        handler.NewTaskHandler(taskStore, hub, logger.With("component", "task")),
		statsH:       handler.NewStatsHandler(statsStore, opts.DefaultWeeks, logger.With("component", "stats")),
		userStore:    userStore,
		sessionStore: sessionStore,
		taskStore:    taskStore,
		statsStore:   statsStore,
		rateLimiter:  middleware.NewRateLimiter(),
		ipResolver:   middleware.NewIPResolver(opts.TrustedProxies),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// StatsStore returns the statistics store for startup initialization.
func (s *Server) StatsStore() *store.StatsStore {
	return s.statsStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// SetClock replaces the time source of every clock-driven store.
func (s *Server) SetClock(now func() time.Time) {
	s.sessionStore.SetClock(now)
	s.taskStore.SetClock(now)
	s.statsStore.SetClock(now)
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(s.rateLimiter, s.ipResolver.ClientIP, 10, time.Minute)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Remove)
	mux.HandleFunc("GET /api/members/{id}/stats", s.memberH.Stats)
	mux.HandleFunc("GET /api/members/{id}/tasks", s.memberH.Tasks)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("GET /api/tasks/{id}/assignee", s.taskH.Assignee)

	mux.HandleFunc("GET /api/stats", s.statsH.Summary)
	mux.HandleFunc("GET /api/stats/week", s.statsH.ThisWeek)
	mux.HandleFunc("GET /api/stats/weekly", s.statsH.Weekly)
	mux.HandleFunc("GET /api/stats/history", s.statsH.History)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}

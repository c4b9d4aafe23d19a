// Package server exposes cooking sessions over HTTP and websockets. Each
// user gets a runtime of their own: a session controller, a voice
// recognizer fed by the browser and a gesture dispatcher.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/metrics"
	"github.com/hammamikhairi/cookmode/internal/voice"
)

// DefaultUser is used when a request names no user.
const DefaultUser = "local"

// Settings tune every per-user runtime.
type Settings struct {
	WakeWords       []string
	CommandTimeout  time.Duration
	Mappings        []voice.Mapping
	Bindings        gesture.Bindings
	DoubleTapWindow time.Duration
	QuickTimers     []gesture.Action
	AutoAdvance     bool
	AlmostDone      time.Duration
	TimerSyncEvery  int
	TickInterval    time.Duration
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		WakeWords:       voice.DefaultWakeWords,
		CommandTimeout:  5 * time.Second,
		Mappings:        voice.DefaultMappings(),
		Bindings:        gesture.DefaultBindings(),
		DoubleTapWindow: gesture.DefaultDoubleTapWindow,
		QuickTimers:     mustQuickTimers(gesture.DefaultQuickTimers),
		AutoAdvance:     true,
		AlmostDone:      30 * time.Second,
		TimerSyncEvery:  10,
		TickInterval:    time.Second,
	}
}

func mustQuickTimers(minutes []int) []gesture.Action {
	presets, err := gesture.QuickTimers(minutes)
	if err != nil {
		panic(err)
	}
	return presets
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics records controller and HTTP metrics and serves /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithAlerter adds a local alerter (desktop notifications) next to the
// browser chimes.
func WithAlerter(a domain.Alerter) Option {
	return func(s *Server) { s.alerter = a }
}

// WithDefaultUser sets the user for requests without an id.
func WithDefaultUser(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.defaultUser = id
		}
	}
}

// WithSettings replaces the runtime settings.
func WithSettings(st Settings) Option {
	return func(s *Server) { s.settings = st }
}

// Server owns the per-user runtimes.
type Server struct {
	backend     domain.SessionBackend
	recipes     domain.RecipeSource
	log         *logger.Logger
	metrics     *metrics.Collector
	alerter     domain.Alerter
	settings    Settings
	defaultUser string
	matcher     *voice.Matcher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	runtimes map[string]*runtime
	closed   bool
}

// New creates a server. Call Close to stop every runtime.
func New(backend domain.SessionBackend, recipes domain.RecipeSource, log *logger.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		backend:     backend,
		recipes:     recipes,
		log:         log,
		settings:    DefaultSettings(),
		defaultUser: DefaultUser,
		runtimes:    make(map[string]*runtime),
	}
	for _, opt := range opts {
		opt(s)
	}

	m, err := voice.NewMatcher(s.settings.Mappings)
	if err != nil {
		return nil, err
	}
	s.matcher = m
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(s.observe)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(identityMiddleware(s.defaultUser))

		r.Get("/api/recipes", s.listRecipes)
		r.Get("/api/recipes/{id}", s.getRecipe)

		r.Route("/api/session", func(r chi.Router) {
			r.Post("/", s.startSession)
			r.Get("/", s.getSession)
			r.Post("/navigate", s.navigate)
			r.Post("/jump", s.jump)
			r.Post("/ingredients/{index}/toggle", s.toggleIngredient)
			r.Post("/steps/{index}/toggle", s.toggleStep)
			r.Post("/complete", s.complete)
			r.Post("/abandon", s.abandon)
		})

		r.Get("/api/timers", s.listTimers)
		r.Get("/api/timers/presets", s.timerPresets)
		r.Post("/api/timers", s.createTimer)
		r.Post("/api/timers/{id}/{action}", s.timerAction)

		r.Post("/api/commands", s.postCommand)
		r.Get("/ws", s.serveWS)
	})
	return r
}

// observe records request counts and latencies by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, route, code, time.Since(start))
	})
}

// runtimeFor returns the user's runtime, creating it on first use.
func (s *Server) runtimeFor(userID string) (*runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrControllerStopped
	}
	if rt, ok := s.runtimes[userID]; ok {
		return rt, nil
	}
	rt := s.newRuntime(userID)
	s.runtimes[userID] = rt
	s.log.Info("runtime started for %s", userID)
	return rt, nil
}

// Close stops every runtime and waits for their controllers.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	rts := make([]*runtime, 0, len(s.runtimes))
	for _, rt := range s.runtimes {
		rts = append(rts, rt)
	}
	s.mu.Unlock()

	s.cancel()
	for _, rt := range rts {
		rt.stop()
	}
	s.log.Info("server stopped %d runtimes", len(rts))
}

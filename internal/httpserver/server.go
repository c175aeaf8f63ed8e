package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/orgball2608/storyreel/internal/feed"
	"github.com/orgball2608/storyreel/internal/ratelimit"
	"github.com/orgball2608/storyreel/internal/viewer"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"go.uber.org/fx"
)

// Server exposes the story listing and the viewer session hooks over HTTP,
// plus a WebSocket stream of cursor updates per session.
type Server struct {
	feed     *feed.Service
	viewer   *viewer.Manager
	limiter  ratelimit.Limiter
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      logger.Logger

	httpServer *http.Server
}

func NewServer(port int, feedService *feed.Service, mgr *viewer.Manager, limiter ratelimit.Limiter, log logger.Logger) *Server {
	s := &Server{
		feed:     feedService,
		viewer:   mgr,
		limiter:  limiter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.WithComponent("http"),
	}
	mgr.OnRemove(limiter.Forget)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     s.Routes(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withLogging)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stories", s.handleListStories)
		r.Post("/stories", s.handlePublishStory)
		r.Get("/stories/{storyID}", s.handleGetStory)
		r.Delete("/stories/{storyID}", s.handleDeleteStory)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(s.withRateLimit)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/viewed", s.handleViewed)
			r.Get("/viewed/{userID}/{index}", s.handleHasViewed)
			r.Get("/stream", s.handleStream)
			r.Post("/open", s.handleOpen)
			r.Post("/next", s.handleAction(actionNext))
			r.Post("/previous", s.handleAction(actionPrevious))
			r.Post("/pause", s.handleAction(actionPause))
			r.Post("/resume", s.handleAction(actionResume))
			r.Post("/toggle", s.handleAction(actionToggle))
			r.Post("/close", s.handleAction(actionClose))
			r.Post("/duration", s.handleDuration)
			r.Post("/media-error", s.handleMediaError)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Config *config.Config
	Feed   *feed.Service
	Viewer *viewer.Manager
	Logger logger.Logger
}

func New(opts Opts) *Server {
	limiter := ratelimit.NewInMemoryLimiter(
		opts.Config.RateLimit.Requests,
		opts.Config.RateLimit.Per,
		opts.Config.RateLimit.Burst,
	)
	s := NewServer(opts.Config.App.Port, opts.Feed, opts.Viewer, limiter, opts.Logger)

	opts.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.Start(); err != nil {
					s.log.Error("Server failed to start", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
	return s
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(*Server) {}),
)

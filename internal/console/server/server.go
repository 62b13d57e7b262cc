package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/floorwatch/internal/console/handler"
	"github.com/xela07ax/floorwatch/internal/engine"
	"github.com/xela07ax/floorwatch/internal/infra"
)

type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    infra.AdminConfig

	// Лимит на мутации админки, общий на инстанс
	limiter *rate.Limiter

	accessHandler    *handler.AccessHandler    // /temp-auth
	directoryHandler *handler.DirectoryHandler // /machines, /employees
	streamHandler    *handler.StreamHandler    // /stream*, /ws/{kind}
}

// NewServer собирает роутер дашборда со всеми обработчиками.
func NewServer(
	cfg infra.AdminConfig,
	logger *zap.Logger,
	accessH *handler.AccessHandler,
	dirH *handler.DirectoryHandler,
	streamH *handler.StreamHandler,
) *Server {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	s := &Server{
		router:           chi.NewRouter(),
		logger:           logger.Named("http-api"),
		cfg:              cfg,
		limiter:          rate.NewLimiter(limit, max(cfg.Burst, 1)),
		accessHandler:    accessH,
		directoryHandler: dirH,
		streamHandler:    streamH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// --- 2. Потоки событий (одна сессия на подключение) ---
	r.Get("/stream", s.streamHandler.SSE(engine.StreamAuthorization))
	r.Get("/stream/zones", s.streamHandler.SSE(engine.StreamZones))
	r.Get("/stream/machines", s.streamHandler.SSE(engine.StreamMachines))
	r.Get("/ws/{kind}", s.streamHandler.WebSocket)

	// --- 3. Справочник ---
	r.Get("/machines", s.directoryHandler.Machines)
	r.Get("/employees", s.directoryHandler.Employees)

	// --- 4. Временные допуски ---
	r.Route("/temp-auth", func(r chi.Router) {
		r.Get("/", s.accessHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(s.limiter, s.logger))
			r.Post("/", s.accessHandler.Grant)
			r.Delete("/{mac}", s.accessHandler.Revoke)
		})
	})
}

// RateLimit отсекает мутации сверх лимита ответом 429.
func RateLimit(limiter *rate.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("admin request throttled",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error": "too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

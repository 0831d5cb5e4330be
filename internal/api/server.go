// Package api exposes the study engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/study"
)

type RouterConfig struct {
	Handler     *Handler
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	h := cfg.Handler
	r.GET("/healthcheck", HealthCheck)

	api := r.Group("/api")
	{
		api.GET("/config/timezone", h.Timezone)
		api.POST("/users", h.CreateUser)
	}

	protected := api.Group("/")
	protected.Use(RequireUser())
	{
		protected.PUT("/me/notifications", h.SetNotifications)
		protected.POST("/me/telegram-link", h.IssueTelegramLink)
		protected.GET("/due", h.DueSummary)
		protected.GET("/dashboard/stats", h.Dashboard)
		protected.GET("/dashboard/stats/detailed", h.DetailedStats)

		// Decks
		protected.GET("/decks", h.ListDecks)
		protected.POST("/decks", h.CreateDeck)
		protected.GET("/decks/:id/cards", h.DeckCards)
		protected.POST("/decks/:id/cards", h.AddCards)
		protected.PUT("/decks/:id/cards/reorder", h.ReorderDeckCards)
		protected.GET("/decks/:id/due", h.DeckDue)
		protected.GET("/decks/:id/retention", h.DeckRetention)
		protected.POST("/decks/:id/session", h.StartDeckSession)
		protected.POST("/decks/:id/import", h.ImportCards)
		protected.GET("/decks/:id/export", h.ExportDeck)

		// Pods
		protected.GET("/pods", h.ListPods)
		protected.POST("/pods", h.CreatePod)
		protected.GET("/pods/:id", h.GetPod)
		protected.GET("/pods/:id/cards", h.PodCards)
		protected.POST("/pods/:id/decks", h.AddDeckToPod)
		protected.DELETE("/pods/:id/decks/:deck_id", h.RemoveDeckFromPod)
		protected.PUT("/pods/:id/decks/reorder", h.ReorderPodDecks)
		protected.GET("/pods/:id/due", h.PodDue)
		protected.GET("/pods/:id/retention", h.PodRetention)
		protected.GET("/pods/:id/stats", h.PodStats)
		protected.POST("/pods/:id/session", h.StartPodSession)

		// Cards and reviews
		protected.PUT("/cards/:id", h.UpdateCard)
		protected.DELETE("/cards/:id", h.RemoveCard)
		protected.GET("/cards/:id/history", h.CardHistory)
		protected.POST("/reviews", h.RecordReview)

		// Sessions
		protected.GET("/sessions/:id", h.GetSession)
		protected.POST("/sessions/:id/pause", h.PauseSession)
		protected.POST("/sessions/:id/progress", h.UpdateProgress)
		protected.POST("/sessions/:id/complete", h.CompleteSession)
	}
	return r
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Server is the HTTP front of the engine
type Server struct {
	srv *http.Server
	log *logger.Logger
}

func NewServer(addr string, engine *study.Engine, corsOrigins []string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("service", "HTTPServer")
	router := NewRouter(RouterConfig{Handler: NewHandler(engine, log), CORSOrigins: corsOrigins}, log)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

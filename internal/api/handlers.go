package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/flashpod/internal/logger"
	"github.com/example/flashpod/internal/study"
	"github.com/example/flashpod/pkg/models"
)

type Handler struct {
	engine *study.Engine
	log    *logger.Logger
}

func NewHandler(engine *study.Engine, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{engine: engine, log: log}
}

// pathID reads a positive integer path parameter, answering 400 otherwise
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid "+name))
		return 0, false
	}
	return id, true
}

// queryDays reads the optional "days" window; 0 selects the default
func queryDays(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("days must be an integer"))
		return 0, false
	}
	return days, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

// POST /reviews
// body: { "card_id": 1, "quality": 4, "response_time_ms": 2300, "session_id": 7 }
func (h *Handler) RecordReview(c *gin.Context) {
	var req struct {
		CardID         int64  `json:"card_id" binding:"required,gt=0"`
		Quality        int    `json:"quality" binding:"required,min=1,max=5"`
		ResponseTimeMs *int   `json:"response_time_ms" binding:"omitempty,min=0"`
		SessionID      *int64 `json:"session_id" binding:"omitempty,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.engine.RecordReview(c.Request.Context(), study.ReviewInput{
		UserID:         userID(c),
		CardID:         req.CardID,
		Quality:        req.Quality,
		ResponseTimeMs: req.ResponseTimeMs,
		SessionID:      req.SessionID,
	})
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// GET /cards/:id/history
func (h *Handler) CardHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.engine.CardHistory(c.Request.Context(), userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"reviews": reviews})
}

func (h *Handler) due(c *gin.Context, scope func(int64) models.Scope) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.engine.GetDueInfo(c.Request.Context(), userID(c), scope(id))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, info)
}

// GET /decks/:id/due
func (h *Handler) DeckDue(c *gin.Context) { h.due(c, models.DeckScope) }

// GET /pods/:id/due
func (h *Handler) PodDue(c *gin.Context) { h.due(c, models.PodScope) }

// GET /due
func (h *Handler) DueSummary(c *gin.Context) {
	info, err := h.engine.DueSummary(c.Request.Context(), userID(c))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, info)
}

// GET /decks/:id/retention?mode=full-spaced&days=30
func (h *Handler) DeckRetention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	days, ok := queryDays(c)
	if !ok {
		return
	}
	mode := models.Mode(c.Query("mode"))
	rate, err := h.engine.GetRetention(c.Request.Context(), userID(c), models.DeckScope(id), mode, days)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"retention_rate": rate})
}

// GET /pods/:id/retention?days=30
// Without a mode the pod's sessions are pooled across modes.
func (h *Handler) PodRetention(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	days, ok := queryDays(c)
	if !ok {
		return
	}
	var (
		rate int
		err  error
	)
	if mode := c.Query("mode"); mode != "" {
		rate, err = h.engine.GetRetention(c.Request.Context(), userID(c), models.PodScope(id), models.Mode(mode), days)
	} else {
		rate, err = h.engine.PodRetention(c.Request.Context(), userID(c), id, days)
	}
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"retention_rate": rate})
}

// GET /pods/:id/stats
func (h *Handler) PodStats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.engine.PodStudyStats(c.Request.Context(), userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, st)
}

// GET /dashboard/stats
func (h *Handler) Dashboard(c *gin.Context) {
	st, err := h.engine.Dashboard(c.Request.Context(), userID(c))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, st)
}

// GET /config/timezone
func (h *Handler) Timezone(c *gin.Context) {
	respondOK(c, h.engine.Timezone().Info())
}

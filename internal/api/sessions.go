package api

import (
	"github.com/gin-gonic/gin"

	"github.com/example/flashpod/pkg/models"
)

func (h *Handler) startSession(c *gin.Context, scope func(int64) models.Scope) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	// The body is optional; an empty mode selects basic.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	st, err := h.engine.StartOrResumeSession(c.Request.Context(), userID(c), scope(id), models.Mode(req.Mode))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, st)
}

// POST /decks/:id/session
// body: { "mode": "basic" | "simple-spaced" | "full-spaced" }
func (h *Handler) StartDeckSession(c *gin.Context) { h.startSession(c, models.DeckScope) }

// POST /pods/:id/session
func (h *Handler) StartPodSession(c *gin.Context) { h.startSession(c, models.PodScope) }

// GET /sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.engine.GetSession(c.Request.Context(), userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, st)
}

// POST /sessions/:id/pause
func (h *Handler) PauseSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.engine.PauseSession(c.Request.Context(), userID(c), id); err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"ok": true})
}

// POST /sessions/:id/progress
// body: { "cards_studied": 10, "cards_correct": 8 }, either may be omitted
func (h *Handler) UpdateProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CardsStudied *int `json:"cards_studied" binding:"omitempty,min=0"`
		CardsCorrect *int `json:"cards_correct" binding:"omitempty,min=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.engine.UpdateSessionProgress(c.Request.Context(), userID(c), id, req.CardsStudied, req.CardsCorrect); err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"ok": true})
}

// POST /sessions/:id/complete
func (h *Handler) CompleteSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.engine.CompleteSession(c.Request.Context(), userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, st)
}

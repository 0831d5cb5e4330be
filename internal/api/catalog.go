package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/flashpod/internal/study"
)

// GET /decks
func (h *Handler) ListDecks(c *gin.Context) {
	decks, err := h.engine.ListDecks(c.Request.Context(), userID(c))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"decks": decks})
}

// GET /decks/:id/cards
func (h *Handler) DeckCards(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cards, err := h.engine.DeckCards(c.Request.Context(), userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"cards": cards})
}

// GET /pods
func (h *Handler) ListPods(c *gin.Context) {
	pods, err := h.engine.ListPods(c.Request.Context(), userID(c))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"pods": pods})
}

// GET /pods/:id?include_stats=true
func (h *Handler) GetPod(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	detail, err := h.engine.GetPod(ctx, userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	resp := gin.H{"pod": detail.Pod, "decks": detail.Decks}
	if c.Query("include_stats") == "true" {
		st, err := h.engine.PodStudyStats(ctx, userID(c), id)
		if err != nil {
			h.respondEngineError(c, err)
			return
		}
		resp["study_stats"] = st
	}
	respondOK(c, resp)
}

// GET /pods/:id/cards
func (h *Handler) PodCards(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cards, err := h.engine.PodCards(c.Request.Context(), userID(c), id)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"cards": cards})
}

// DELETE /pods/:id/decks/:deck_id
func (h *Handler) RemoveDeckFromPod(c *gin.Context) {
	podID, ok := pathID(c, "id")
	if !ok {
		return
	}
	deckID, ok := pathID(c, "deck_id")
	if !ok {
		return
	}
	if err := h.engine.RemoveDeckFromPod(c.Request.Context(), userID(c), podID, deckID); err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /pods/:id/decks/reorder
// body: { "deck_orders": [{ "deck_id": 3, "order": 1 }] }
func (h *Handler) ReorderPodDecks(c *gin.Context) {
	podID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		DeckOrders []struct {
			DeckID int64 `json:"deck_id" binding:"required,gt=0"`
			Order  *int  `json:"order" binding:"required,min=0"`
		} `json:"deck_orders" binding:"required,min=1,dive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	positions := make([]study.Position, len(req.DeckOrders))
	for i, o := range req.DeckOrders {
		positions[i] = study.Position{ID: o.DeckID, Order: *o.Order}
	}
	if err := h.engine.ReorderPodDecks(c.Request.Context(), userID(c), podID, positions); err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /decks/:id/cards/reorder
// body: { "card_orders": [{ "card_id": 12, "order": 1 }] }
func (h *Handler) ReorderDeckCards(c *gin.Context) {
	deckID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CardOrders []struct {
			CardID int64 `json:"card_id" binding:"required,gt=0"`
			Order  *int  `json:"order" binding:"required,min=0"`
		} `json:"card_orders" binding:"required,min=1,dive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	positions := make([]study.Position, len(req.CardOrders))
	for i, o := range req.CardOrders {
		positions[i] = study.Position{ID: o.CardID, Order: *o.Order}
	}
	if err := h.engine.ReorderDeckCards(c.Request.Context(), userID(c), deckID, positions); err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /cards/:id
// body: any of { "front_content", "back_content", "tags", "display_order" }
func (h *Handler) UpdateCard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		FrontContent *string `json:"front_content"`
		BackContent  *string `json:"back_content"`
		Tags         *string `json:"tags"`
		DisplayOrder *int    `json:"display_order"`
	}
	if !bindJSON(c, &req) {
		return
	}
	card, err := h.engine.UpdateCard(c.Request.Context(), userID(c), id, study.CardUpdate{
		FrontContent: req.FrontContent,
		BackContent:  req.BackContent,
		Tags:         req.Tags,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"card": card})
}

// GET /dashboard/stats/detailed?days=30
func (h *Handler) DetailedStats(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}
	st, err := h.engine.DetailedStats(c.Request.Context(), userID(c), days)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, st)
}

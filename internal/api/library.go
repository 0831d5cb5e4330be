package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/flashpod/internal/excel"
	"github.com/example/flashpod/internal/study"
)

// POST /users
// body: { "username": "ada" }
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,max=100"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.engine.CreateUser(c.Request.Context(), req.Username)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// PUT /me/notifications
// body: { "enabled": false }
func (h *Handler) SetNotifications(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.engine.SetNotifications(c.Request.Context(), userID(c), *req.Enabled); err != nil {
		h.respondEngineError(c, err)
		return
	}
	respondOK(c, gin.H{"notifications_enabled": *req.Enabled})
}

// POST /me/telegram-link
// The returned code links a Telegram chat when sent to the bot as /start <code>.
func (h *Handler) IssueTelegramLink(c *gin.Context) {
	lc, err := h.engine.IssueTelegramLinkCode(c.Request.Context(), userID(c))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": lc.Code, "expires_at": lc.ExpiresAt})
}

type containerRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

// POST /decks
func (h *Handler) CreateDeck(c *gin.Context) {
	var req containerRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.engine.CreateDeck(c.Request.Context(), userID(c), req.Name, req.Description)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deck": d})
}

// POST /pods
func (h *Handler) CreatePod(c *gin.Context) {
	var req containerRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.engine.CreatePod(c.Request.Context(), userID(c), req.Name, req.Description)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pod": p})
}

// POST /pods/:id/decks
// body: { "deck_id": 3 }
func (h *Handler) AddDeckToPod(c *gin.Context) {
	podID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		DeckID int64 `json:"deck_id" binding:"required,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pd, err := h.engine.AddDeckToPod(c.Request.Context(), userID(c), podID, req.DeckID)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pod_deck": pd})
}

// POST /decks/:id/cards
// body: { "cards": [{ "front_content": "...", "back_content": "...", "tags": "..." }] }
func (h *Handler) AddCards(c *gin.Context) {
	deckID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Cards []struct {
			FrontContent string `json:"front_content" binding:"required"`
			BackContent  string `json:"back_content" binding:"required"`
			Tags         string `json:"tags"`
		} `json:"cards" binding:"required,min=1,dive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	inputs := make([]study.CardInput, len(req.Cards))
	for i, in := range req.Cards {
		inputs[i] = study.CardInput{FrontContent: in.FrontContent, BackContent: in.BackContent, Tags: in.Tags}
	}
	cards, err := h.engine.AddCards(c.Request.Context(), userID(c), deckID, inputs)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cards": cards})
}

// DELETE /cards/:id
func (h *Handler) RemoveCard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.engine.RemoveCard(c.Request.Context(), userID(c), id); err != nil {
		h.respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /decks/:id/import
// multipart form: file (csv or xlsx), optional format, term_column,
// definition_column, tags_column, sheet_name
func (h *Handler) ImportCards(c *gin.Context) {
	deckID, ok := pathID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("file is required"))
		return
	}
	format, err := excel.FormatFromFilename(fh.Filename)
	if f := c.PostForm("format"); f != "" {
		format, err = excel.ParseFormat(f)
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	cfg := excel.DefaultImportConfig()
	cfg.TermColumn = c.DefaultPostForm("term_column", cfg.TermColumn)
	cfg.DefinitionColumn = c.DefaultPostForm("definition_column", cfg.DefinitionColumn)
	cfg.TagsColumn = c.DefaultPostForm("tags_column", cfg.TagsColumn)
	cfg.SheetName = c.PostForm("sheet_name")

	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("failed to read upload: %w", err))
		return
	}
	defer f.Close()

	result, err := excel.Parse(f, format, cfg)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	if len(result.Cards) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  APIError{Message: "no valid cards found", Code: "invalid_file"},
			"result": result,
		})
		return
	}

	inputs := make([]study.CardInput, len(result.Cards))
	for i, row := range result.Cards {
		inputs[i] = study.CardInput{FrontContent: row.Term, BackContent: row.Definition, Tags: row.Tags}
	}
	cards, err := h.engine.AddCards(c.Request.Context(), userID(c), deckID, inputs)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	h.log.Info("Cards imported", "deck_id", deckID, "format", format, "imported", len(cards), "skipped", result.Skipped)
	c.JSON(http.StatusCreated, gin.H{
		"imported": len(cards),
		"skipped":  result.Skipped,
		"errors":   result.Errors,
		"metadata": result.Metadata,
	})
}

// GET /decks/:id/export?format=csv|xlsx
func (h *Handler) ExportDeck(c *gin.Context) {
	deckID, ok := pathID(c, "id")
	if !ok {
		return
	}
	format, err := excel.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	exp, err := h.engine.ExportDeck(c.Request.Context(), userID(c), deckID)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	c.Header("Content-Type", excel.ContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, excel.Filename(exp.Deck, format)))
	c.Status(http.StatusOK)
	if err := excel.Export(c.Writer, format, exp.Deck, exp.Cards, h.engine.Timezone().NowUTC()); err != nil {
		h.log.Error("Export failed", "deck_id", deckID, "error", err)
	}
}

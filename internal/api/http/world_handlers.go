package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// ListWorlds lists every world
func (h *Handlers) ListWorlds(c *gin.Context) {
	current, _ := h.worlds.CurrentWorld()
	c.JSON(http.StatusOK, gin.H{
		"worlds":  h.worlds.Worlds(),
		"current": current,
	})
}

// CreateWorld creates a world
func (h *Handlers) CreateWorld(c *gin.Context) {
	var req types.CreateWorldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w := h.worlds.CreateWorld(req.Name)
	c.JSON(http.StatusCreated, gin.H{"world": w})
}

// SwitchWorld changes the current world
func (h *Handlers) SwitchWorld(c *gin.Context) {
	if err := h.worlds.SwitchWorld(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"switched": true})
}

// ListCharacters lists characters in the current world
func (h *Handlers) ListCharacters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"characters": h.worlds.Characters()})
}

// CreateCharacter creates a character in the current world
func (h *Handlers) CreateCharacter(c *gin.Context) {
	var req types.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	character, err := h.worlds.CreateCharacter(req.Name, req.Fields)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"character": character})
}

// ListNotes lists notes in the current world
func (h *Handlers) ListNotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notes": h.worlds.Notes()})
}

// CreateNote creates a note in the current world
func (h *Handlers) CreateNote(c *gin.Context) {
	var req types.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.worlds.CreateNote(req.Title, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

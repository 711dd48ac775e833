package handlers

import (
	"net/http"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/gin-gonic/gin"
)

// SearchConfigRequest creates or replaces a search config
type SearchConfigRequest struct {
	Name        string   `json:"name" binding:"required"`
	Skus        []string `json:"skus" binding:"required"`
	Regions     []string `json:"regions"`
	MinQuantity int      `json:"min_quantity"`
	Description string   `json:"description"`
}

func (r SearchConfigRequest) model() models.SearchConfig {
	return models.SearchConfig{
		Name:        r.Name,
		Skus:        r.Skus,
		Regions:     r.Regions,
		MinQuantity: r.MinQuantity,
		Description: r.Description,
	}
}

// ListSearchConfigs returns every search config
func (h *Handler) ListSearchConfigs(c *gin.Context) {
	configs, err := h.searchConfigs.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

// GetSearchConfig returns one search config
func (h *Handler) GetSearchConfig(c *gin.Context) {
	id, ok := paramID(c, "search config")
	if !ok {
		return
	}

	cfg, err := h.searchConfigs.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// CreateSearchConfig stores a new search config
func (h *Handler) CreateSearchConfig(c *gin.Context) {
	var req SearchConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cfg := req.model()
	if err := h.searchConfigs.Save(c.Request.Context(), &cfg); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// UpdateSearchConfig replaces a search config
func (h *Handler) UpdateSearchConfig(c *gin.Context) {
	id, ok := paramID(c, "search config")
	if !ok {
		return
	}

	var req SearchConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	existing, err := h.searchConfigs.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	cfg := req.model()
	cfg.ID = id
	cfg.CreatedAt = existing.CreatedAt
	if err := h.searchConfigs.Save(c.Request.Context(), &cfg); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// DeleteSearchConfig removes a search config
func (h *Handler) DeleteSearchConfig(c *gin.Context) {
	id, ok := paramID(c, "search config")
	if !ok {
		return
	}

	if err := h.searchConfigs.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Search config deleted"})
}

// RunSearchConfig runs a search right away
func (h *Handler) RunSearchConfig(c *gin.Context) {
	id, ok := paramID(c, "search config")
	if !ok {
		return
	}

	result, err := h.pipeline.RunSearch(c.Request.Context(), id, operator(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

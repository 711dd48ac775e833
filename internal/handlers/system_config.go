package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UpdateConfigsRequest sets several system config values at once
type UpdateConfigsRequest struct {
	Configs map[string]string `json:"configs" binding:"required"`
}

// GetSystemConfigs returns the stored analysis thresholds
func (h *Handler) GetSystemConfigs(c *gin.Context) {
	values, err := h.systemConfigs.GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

// UpdateSystemConfigs stores new values. Unknown keys are rejected.
func (h *Handler) UpdateSystemConfigs(c *gin.Context) {
	var req UpdateConfigsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.systemConfigs.Set(c.Request.Context(), req.Configs); err != nil {
		h.respondError(c, err)
		return
	}
	h.GetEffectiveThresholds(c)
}

// GetEffectiveThresholds shows the thresholds the next analysis will use and
// which stored values were replaced by defaults
func (h *Handler) GetEffectiveThresholds(c *gin.Context) {
	thresholds, problems, err := h.systemConfigs.LoadThresholds(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	issues := make([]string, 0, len(problems))
	for _, p := range problems {
		issues = append(issues, p.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"thresholds": thresholds,
		"problems":   issues,
	})
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/internal/services"
	"github.com/gin-gonic/gin"
)

// GetAlerts retrieves alerts with filters and pagination
func (h *Handler) GetAlerts(c *gin.Context) {
	page, limit := pagination(c, 10)

	filter, err := alertFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alerts, total, err := h.alerts.GetAlerts(c.Request.Context(), filter, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetAlert retrieves a specific alert by ID
func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := paramID(c, "alert")
	if !ok {
		return
	}

	alert, err := h.alerts.GetAlert(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

func alertFilter(c *gin.Context) (services.AlertFilter, error) {
	var filter services.AlertFilter

	if v := c.Query("sku_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return filter, errBadQuery("sku_id", v)
		}
		filter.TrackedSkuID = uint(id)
	}
	filter.RegionID = c.Query("region_id")

	if v := c.Query("level"); v != "" {
		level, err := models.ParseAlertLevel(v)
		if err != nil {
			return filter, err
		}
		filter.MinLevel = level
	}

	if v := c.Query("since"); v != "" {
		since, err := parseSince(v)
		if err != nil {
			return filter, errBadQuery("since", v)
		}
		filter.Since = since
	}
	return filter, nil
}

// parseSince accepts RFC 3339 timestamps or plain dates
func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(models.RecordDateLayout, v)
}

func errBadQuery(name, value string) error {
	return fmt.Errorf("invalid %s %q", name, value)
}

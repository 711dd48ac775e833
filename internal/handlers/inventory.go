package handlers

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AddSkusRequest registers one SKU or a batch
type AddSkusRequest struct {
	Sku  string   `json:"sku"`
	Skus []string `json:"skus"`
}

// RunAnalysisRequest optionally limits analysis to one tracked SKU
type RunAnalysisRequest struct {
	SkuID *uint `json:"sku_id"`
}

// ListSkus returns every tracked SKU
func (h *Handler) ListSkus(c *gin.Context) {
	skus, err := h.skus.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, skus)
}

// ListSkusPaginated returns one page of tracked SKUs
func (h *Handler) ListSkusPaginated(c *gin.Context) {
	page, limit := pagination(c, 20)

	skus, total, err := h.skus.ListPage(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": skus,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// AddSkus registers SKUs, fetching each once
func (h *Handler) AddSkus(c *gin.Context) {
	var req AddSkusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(req.Skus) > 0 {
		result, err := h.pipeline.AddTrackedSkus(c.Request.Context(), req.Skus, operator(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	code := strings.TrimSpace(req.Sku)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku or skus is required"})
		return
	}
	sku, err := h.pipeline.AddTrackedSku(c.Request.Context(), code, operator(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sku)
}

// GetSku returns one tracked SKU with its latest alerts
func (h *Handler) GetSku(c *gin.Context) {
	id, ok := paramID(c, "SKU")
	if !ok {
		return
	}

	sku, err := h.skus.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	alerts, err := h.alerts.GetAlertsBySku(c.Request.Context(), id, 10)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": sku, "alerts": alerts})
}

// HasHistory tells whether deleting a SKU would drop history
func (h *Handler) HasHistory(c *gin.Context) {
	id, ok := paramID(c, "SKU")
	if !ok {
		return
	}

	if _, err := h.skus.Get(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	has, err := h.skus.HasHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_history": has})
}

// DeleteSku removes a tracked SKU with its history and alerts. A SKU with
// history is only removed when confirm=true is passed.
func (h *Handler) DeleteSku(c *gin.Context) {
	id, ok := paramID(c, "SKU")
	if !ok {
		return
	}

	if c.Query("confirm") != "true" {
		has, err := h.skus.HasHistory(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if has {
			c.JSON(http.StatusConflict, gin.H{
				"error":       "SKU has history, pass confirm=true to delete it",
				"has_history": true,
			})
			return
		}
	}

	if err := h.skus.Remove(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SKU deleted"})
}

// GetHistory returns the stored records of a SKU, optionally limited to
// one region and a number of days
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := paramID(c, "SKU")
	if !ok {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days"})
		return
	}
	regionID := c.Query("region_id")

	sku, err := h.skus.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var records []models.InventoryRecord
	if days > 0 {
		records, err = h.history.Query(c.Request.Context(), id, days)
		if err == nil && regionID != "" {
			filtered := records[:0]
			for _, r := range records {
				if r.RegionID == regionID {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}
	} else {
		records, err = h.history.RegionHistory(c.Request.Context(), id, regionID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sku": sku, "records": records})
}

// ExportHistory streams the SKU history as an XLSX workbook
func (h *Handler) ExportHistory(c *gin.Context) {
	id, ok := paramID(c, "SKU")
	if !ok {
		return
	}

	sku, err := h.skus.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	f, err := h.exporter.Export(c.Request.Context(), sku)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": sku.Sku + "-history.xlsx",
	}))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// FetchNow fetches every tracked SKU. Per-SKU failures still answer 200.
func (h *Handler) FetchNow(c *gin.Context) {
	report, err := h.pipeline.FetchNow(c.Request.Context(), operator(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// FetchSku fetches one tracked SKU
func (h *Handler) FetchSku(c *gin.Context) {
	id, ok := paramID(c, "SKU")
	if !ok {
		return
	}

	fetched, err := h.pipeline.FetchSku(c.Request.Context(), id, operator(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fetched)
}

// RunAnalysis runs consumption analysis over all SKUs or one
func (h *Handler) RunAnalysis(c *gin.Context) {
	var req RunAnalysisRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	result, err := h.pipeline.RunAnalysisNow(c.Request.Context(), req.SkuID, operator(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Status reports the run lock holder and the armed schedules
func (h *Handler) Status(c *gin.Context) {
	status := h.pipeline.Status()
	active := h.scheduler.ActiveScheduleIDs()
	if active == nil {
		active = []uint{}
	}
	c.JSON(http.StatusOK, gin.H{
		"running":          status.Running,
		"current":          status.Current,
		"active_schedules": active,
	})
}

// GetRunLogs returns past runs, optionally of one kind
func (h *Handler) GetRunLogs(c *gin.Context) {
	page, limit := pagination(c, 20)
	kind := models.RunKind(c.Query("kind"))

	logs, total, err := h.runLogs.GetRunLogs(c.Request.Context(), kind, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

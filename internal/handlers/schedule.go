package handlers

import (
	"net/http"
	"time"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/internal/services"
	"github.com/gin-gonic/gin"
)

// CreateScheduleRequest describes a new schedule
type CreateScheduleRequest struct {
	Name     string              `json:"name" binding:"required"`
	Kind     models.ScheduleKind `json:"kind" binding:"required"`
	Cron     string              `json:"cron" binding:"required"`
	ConfigID *uint               `json:"config_id"`
	IsActive *bool               `json:"is_active"`
}

// SetCronRequest changes the cron expression of a named schedule
type SetCronRequest struct {
	Cron string `json:"cron" binding:"required"`
}

// ToggleScheduleRequest activates or deactivates a schedule
type ToggleScheduleRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type scheduleView struct {
	models.Schedule
	NextRun *time.Time `json:"next_run,omitempty"`
}

func (h *Handler) viewSchedule(s models.Schedule) scheduleView {
	v := scheduleView{Schedule: s}
	if next, ok := h.scheduler.NextRun(s.ID); ok && !next.IsZero() {
		v.NextRun = &next
	}
	return v
}

// ListSchedules returns every schedule with its next fire time
func (h *Handler) ListSchedules(c *gin.Context) {
	schedules, err := h.scheduler.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]scheduleView, 0, len(schedules))
	for _, s := range schedules {
		views = append(views, h.viewSchedule(s))
	}
	c.JSON(http.StatusOK, views)
}

// GetSchedule returns one schedule
func (h *Handler) GetSchedule(c *gin.Context) {
	id, ok := paramID(c, "schedule")
	if !ok {
		return
	}

	sched, err := h.scheduler.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.viewSchedule(*sched))
}

// GetScheduleByName returns a schedule looked up by name
func (h *Handler) GetScheduleByName(c *gin.Context) {
	sched, err := h.scheduler.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.viewSchedule(*sched))
}

// CreateSchedule stores and arms a schedule
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sched := &models.Schedule{
		Name:     req.Name,
		Kind:     req.Kind,
		Cron:     req.Cron,
		ConfigID: req.ConfigID,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := h.scheduler.Create(c.Request.Context(), sched); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.viewSchedule(*sched))
}

// UpdateSchedule changes the given fields of a schedule
func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, ok := paramID(c, "schedule")
	if !ok {
		return
	}

	var req services.ScheduleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sched, err := h.scheduler.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.viewSchedule(*sched))
}

// SetScheduleCron changes the cron expression of a named schedule
func (h *Handler) SetScheduleCron(c *gin.Context) {
	var req SetCronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sched, err := h.scheduler.SetCron(c.Request.Context(), c.Param("name"), req.Cron)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.viewSchedule(*sched))
}

// ToggleSchedule starts or stops a schedule's timer
func (h *Handler) ToggleSchedule(c *gin.Context) {
	id, ok := paramID(c, "schedule")
	if !ok {
		return
	}

	var req ToggleScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sched, err := h.scheduler.Toggle(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.viewSchedule(*sched))
}

// DeleteSchedule removes a user-defined schedule
func (h *Handler) DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "schedule")
	if !ok {
		return
	}

	if err := h.scheduler.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}

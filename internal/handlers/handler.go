package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	operatorHeader  = "X-Operator"
	defaultOperator = "admin"
	maxPageLimit    = 200
)

// Dependencies are the services the admin API is built on
type Dependencies struct {
	Pipeline      *services.Pipeline
	Skus          *services.SkuService
	History       *services.HistoryService
	Alerts        *services.AlertService
	SystemConfigs *services.SystemConfigService
	SearchConfigs *services.SearchConfigService
	RunLogs       *services.RunLogService
	Scheduler     *services.Scheduler
	Exporter      *services.HistoryExporter
	Logger        *slog.Logger
}

// Handler serves the admin API
type Handler struct {
	pipeline      *services.Pipeline
	skus          *services.SkuService
	history       *services.HistoryService
	alerts        *services.AlertService
	systemConfigs *services.SystemConfigService
	searchConfigs *services.SearchConfigService
	runLogs       *services.RunLogService
	scheduler     *services.Scheduler
	exporter      *services.HistoryExporter
	logger        *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		pipeline:      deps.Pipeline,
		skus:          deps.Skus,
		history:       deps.History,
		alerts:        deps.Alerts,
		systemConfigs: deps.SystemConfigs,
		searchConfigs: deps.SearchConfigs,
		runLogs:       deps.RunLogs,
		scheduler:     deps.Scheduler,
		exporter:      deps.Exporter,
		logger:        logger.OrDefault(deps.Logger),
	}
}

// respondError maps service errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var busy *services.BusyError
	switch {
	case errors.As(err, &busy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "current": busy.Current})
	case errors.Is(err, services.ErrSkuNotFound),
		errors.Is(err, services.ErrSkuRemoved),
		errors.Is(err, services.ErrScheduleNotFound),
		errors.Is(err, services.ErrConfigNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyTracked),
		errors.Is(err, services.ErrScheduleExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidCron),
		errors.Is(err, services.ErrUnknownConfigKey),
		errors.Is(err, services.ErrBuiltinSchedule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// operator names who triggered a manual run
func operator(c *gin.Context) string {
	if by := strings.TrimSpace(c.GetHeader(operatorHeader)); by != "" {
		return by
	}
	return defaultOperator
}

// paramID parses the :id path parameter, answering 400 when it is bad
func paramID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return uint(id), true
}

// pagination reads page and limit with sane bounds
func pagination(c *gin.Context, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

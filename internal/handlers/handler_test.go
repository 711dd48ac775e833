package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestRespondError(t *testing.T) {
	h := NewHandler(Dependencies{Logger: logger.Discard()})

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"sku not found", fmt.Errorf("%w: X", services.ErrSkuNotFound), http.StatusNotFound},
		{"sku removed mid-run", fmt.Errorf("%w: X", services.ErrSkuRemoved), http.StatusNotFound},
		{"schedule not found", services.ErrScheduleNotFound, http.StatusNotFound},
		{"config not found", services.ErrConfigNotFound, http.StatusNotFound},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"already tracked", fmt.Errorf("%w: A", services.ErrAlreadyTracked), http.StatusConflict},
		{"schedule exists", services.ErrScheduleExists, http.StatusConflict},
		{"validation", fmt.Errorf("%w: name is required", services.ErrValidation), http.StatusBadRequest},
		{"invalid cron", services.ErrInvalidCron, http.StatusBadRequest},
		{"unknown config key", services.ErrUnknownConfigKey, http.StatusBadRequest},
		{"builtin schedule", services.ErrBuiltinSchedule, http.StatusBadRequest},
		{"auth", &services.AuthError{Err: errors.New("bad password")}, http.StatusInternalServerError},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext("/")
			h.respondError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestRespondErrorBusy(t *testing.T) {
	h := NewHandler(Dependencies{Logger: logger.Discard()})
	busy := &services.BusyError{Current: services.Runner{
		ID:        "run-1",
		Task:      models.RunKindInventoryFetch,
		Trigger:   services.TriggerScheduled,
		By:        "inventory-fetch",
		StartedAt: time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
	}}

	c, w := newContext("/")
	h.respondError(c, fmt.Errorf("fetch: %w", busy))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Error   string          `json:"error"`
		Current services.Runner `json:"current"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.Current.ID)
	assert.Equal(t, models.RunKindInventoryFetch, body.Current.Task)
	assert.Contains(t, body.Error, "schedule inventory-fetch")
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 20},
		{"?page=3&limit=5", 3, 5},
		{"?page=0&limit=-1", 1, 20},
		{"?page=abc&limit=xyz", 1, 20},
		{"?limit=1000", 1, maxPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := newContext("/skus" + tt.query)
			page, limit := pagination(c, 20)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.limit, limit)
		})
	}
}

func TestOperator(t *testing.T) {
	c, _ := newContext("/")
	assert.Equal(t, defaultOperator, operator(c))

	c.Request.Header.Set(operatorHeader, "  alice ")
	assert.Equal(t, "alice", operator(c))
}

func TestParamID(t *testing.T) {
	c, w := newContext("/")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := paramID(c, "SKU")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c, w = newContext("/")
		c.Params = gin.Params{{Key: "id", Value: bad}}
		_, ok = paramID(c, "SKU")
		assert.False(t, ok, bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestAlertFilter(t *testing.T) {
	c, _ := newContext("/alerts?sku_id=7&region_id=R1&level=medium&since=2024-03-01")
	filter, err := alertFilter(c)
	require.NoError(t, err)
	assert.Equal(t, uint(7), filter.TrackedSkuID)
	assert.Equal(t, "R1", filter.RegionID)
	assert.Equal(t, models.AlertLevelMedium, filter.MinLevel)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), filter.Since)

	c, _ = newContext("/alerts?since=2024-03-01T08:00:00Z&level=3")
	filter, err = alertFilter(c)
	require.NoError(t, err)
	assert.Equal(t, models.AlertLevelHigh, filter.MinLevel)
	assert.Equal(t, 8, filter.Since.Hour())

	for _, q := range []string{"?sku_id=x", "?level=severe", "?level=4", "?since=yesterday"} {
		c, _ = newContext("/alerts" + q)
		_, err = alertFilter(c)
		assert.Error(t, err, q)
	}
}

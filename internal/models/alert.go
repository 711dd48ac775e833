package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// AlertTypeFastConsumption marks stock draining faster than the threshold
const AlertTypeFastConsumption = "FAST_CONSUMPTION"

// AlertLevel is the severity of an alert, 1 (low) to 3 (high)
type AlertLevel int

const (
	AlertLevelNone AlertLevel = iota
	AlertLevelLow
	AlertLevelMedium
	AlertLevelHigh
)

func (l AlertLevel) String() string {
	switch l {
	case AlertLevelLow:
		return "low"
	case AlertLevelMedium:
		return "medium"
	case AlertLevelHigh:
		return "high"
	default:
		return "none"
	}
}

// ParseAlertLevel accepts a level name or its number
func ParseAlertLevel(s string) (AlertLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return AlertLevelLow, nil
	case "medium":
		return AlertLevelMedium, nil
	case "high":
		return AlertLevelHigh, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < int(AlertLevelLow) || n > int(AlertLevelHigh) {
		return AlertLevelNone, fmt.Errorf("invalid alert level %q", s)
	}
	return AlertLevel(n), nil
}

// FastConsumptionDetails is the measurement behind a FAST_CONSUMPTION alert
type FastConsumptionDetails struct {
	Timespan            int     `json:"timespan"`
	Threshold           float64 `json:"threshold"`
	MinDailyConsumption float64 `json:"minDailyConsumption"`
	ConsumptionRate     float64 `json:"consumptionRate"`
	DailyConsumption    float64 `json:"dailyConsumption"`
	QtyChange           int     `json:"qtyChange"`
	Days                float64 `json:"days"`
	StartQty            int     `json:"startQty"`
	EndQty              int     `json:"endQty"`
	StartDate           string  `json:"startDate"`
	EndDate             string  `json:"endDate"`
}

// Alert is a persisted consumption alert for one SKU in one region
type Alert struct {
	ID           uint                                       `json:"id" gorm:"primaryKey"`
	TrackedSkuID uint                                       `json:"tracked_sku_id" gorm:"index;not null"`
	Sku          string                                     `json:"sku" gorm:"size:128;index"`
	RegionID     string                                     `json:"region_id" gorm:"size:64"`
	RegionName   string                                     `json:"region_name"`
	AlertType    string                                     `json:"alert_type" gorm:"size:32;not null"`
	AlertLevel   AlertLevel                                 `json:"alert_level" gorm:"index;not null"`
	Details      datatypes.JSONType[FastConsumptionDetails] `json:"details"`
	CreatedAt    time.Time                                  `json:"created_at" gorm:"index"`
}

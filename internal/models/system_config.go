package models

import "time"

// Keys recognised in the system config table
const (
	ConfigAlertTimespan       = "alert_timespan"
	ConfigAlertThreshold      = "alert_threshold"
	ConfigMinDailyConsumption = "min_daily_consumption"
	ConfigMaxDailyConsumption = "max_daily_consumption"
	ConfigMediumMultiplier    = "medium_multiplier"
)

// KnownConfigKeys lists every key an operator may set
var KnownConfigKeys = []string{
	ConfigAlertTimespan,
	ConfigAlertThreshold,
	ConfigMinDailyConsumption,
	ConfigMaxDailyConsumption,
	ConfigMediumMultiplier,
}

// SystemConfig is an operator-editable key/value setting
type SystemConfig struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"size:255"`
	UpdatedAt time.Time `json:"updated_at"`
}

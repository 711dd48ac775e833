package models

import "time"

// ScheduleKind selects what a schedule runs
type ScheduleKind string

const (
	ScheduleKindInventoryFetch    ScheduleKind = "inventory_fetch"
	ScheduleKindInventoryAnalysis ScheduleKind = "inventory_analysis"
	ScheduleKindSkuSearch         ScheduleKind = "sku_search"
)

// Valid reports whether k is a known schedule kind
func (k ScheduleKind) Valid() bool {
	switch k {
	case ScheduleKindInventoryFetch, ScheduleKindInventoryAnalysis, ScheduleKindSkuSearch:
		return true
	}
	return false
}

// Names of the built-in schedules seeded at startup
const (
	ScheduleNameInventoryFetch    = "inventory-fetch"
	ScheduleNameInventoryAnalysis = "inventory-analysis"
)

// Schedule is a persisted cron trigger
type Schedule struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"size:128;uniqueIndex;not null"`
	Kind      ScheduleKind `json:"kind" gorm:"size:32;not null"`
	Cron      string       `json:"cron" gorm:"size:64;not null"`
	ConfigID  *uint        `json:"config_id"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsBuiltin reports whether the schedule is one of the seeded ones
func (s Schedule) IsBuiltin() bool {
	return s.Name == ScheduleNameInventoryFetch || s.Name == ScheduleNameInventoryAnalysis
}

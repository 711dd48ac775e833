package models

import (
	"time"

	"gorm.io/datatypes"
)

// RunKind identifies what a pipeline run did
type RunKind string

const (
	RunKindInventoryFetch    RunKind = "inventory_fetch"
	RunKindInventoryAnalysis RunKind = "inventory_analysis"
	RunKindSkuFetch          RunKind = "sku_fetch"
	RunKindSkuRegister       RunKind = "sku_register"
	RunKindSkuSearch         RunKind = "sku_search"
)

// RunStatus is the outcome of a run
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunLog records one execution of the pipeline
type RunLog struct {
	ID          uint                           `json:"id" gorm:"primaryKey"`
	RunID       string                         `json:"run_id" gorm:"size:36;index;not null"`
	Kind        RunKind                        `json:"kind" gorm:"size:32;index;not null"`
	Trigger     string                         `json:"trigger" gorm:"size:16"`
	TriggeredBy string                         `json:"triggered_by" gorm:"size:128"`
	ScheduleID  *uint                          `json:"schedule_id"`
	Status      RunStatus                      `json:"status" gorm:"size:16;index"`
	Processed   int                            `json:"processed"`
	Failed      int                            `json:"failed"`
	FailedSkus  datatypes.JSONSlice[string]    `json:"failed_skus"`
	NewAlerts   int                            `json:"new_alerts"`
	Hits        datatypes.JSONSlice[SearchHit] `json:"hits,omitempty"`
	Error       string                         `json:"error,omitempty" gorm:"type:text"`
	StartedAt   time.Time                      `json:"started_at" gorm:"index"`
	FinishedAt  time.Time                      `json:"finished_at"`
}

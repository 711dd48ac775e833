package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordDateLayout is the calendar-day format of InventoryRecord.RecordDate
const RecordDateLayout = "2006-01-02"

// InventoryRecord is one day's stock level of a SKU in a region. At most one
// row exists per (sku, region, day); later fetches the same day overwrite it.
type InventoryRecord struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	TrackedSkuID uint            `json:"tracked_sku_id" gorm:"not null;uniqueIndex:idx_inventory_sku_region_day,priority:1"`
	RegionID     string          `json:"region_id" gorm:"size:64;not null;uniqueIndex:idx_inventory_sku_region_day,priority:2"`
	RegionName   string          `json:"region_name"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	RecordDate   string          `json:"record_date" gorm:"size:10;not null;index;uniqueIndex:idx_inventory_sku_region_day,priority:3"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DateOf formats t as a record date in t's own location
func DateOf(t time.Time) string {
	return t.Format(RecordDateLayout)
}

// Day parses RecordDate as midnight UTC
func (r InventoryRecord) Day() (time.Time, error) {
	return time.ParseInLocation(RecordDateLayout, r.RecordDate, time.UTC)
}

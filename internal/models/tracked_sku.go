package models

import "time"

// TrackedSku is a product code the pipeline monitors. The Latest* fields
// cache the most recent successful fetch for display.
type TrackedSku struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Sku              string     `json:"sku" gorm:"size:128;uniqueIndex;not null"`
	ProductName      string     `json:"product_name"`
	ProductImage     string     `json:"product_image"`
	LatestQty        *int       `json:"latest_qty"`
	LatestMonthSale  *int       `json:"latest_month_sale"`
	LatestRecordTime *time.Time `json:"latest_record_time"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

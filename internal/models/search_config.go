package models

import (
	"time"

	"gorm.io/datatypes"
)

// SearchConfig is a saved SKU probe: the listed SKUs are looked up and any
// stock in the listed regions (all regions when empty) is reported.
type SearchConfig struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	Name        string                      `json:"name" gorm:"size:128;uniqueIndex;not null"`
	Skus        datatypes.JSONSlice[string] `json:"skus"`
	Regions     datatypes.JSONSlice[string] `json:"regions"`
	MinQuantity int                         `json:"min_quantity"`
	Description string                      `json:"description"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// SearchHit is a region of a searched SKU that had stock
type SearchHit struct {
	Sku         string `json:"sku"`
	ProductName string `json:"product_name"`
	RegionID    string `json:"region_id"`
	RegionName  string `json:"region_name"`
	Quantity    int    `json:"qty"`
}

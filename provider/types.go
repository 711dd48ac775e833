package provider

import "github.com/shopspring/decimal"

// Credentials represents the warehouse account used to obtain tokens
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// RegionStock is the stock level of a product in one warehouse region
type RegionStock struct {
	RegionID   string          `json:"region_id"`
	RegionName string          `json:"region_name"`
	Quantity   int             `json:"qty"`
	Price      decimal.Decimal `json:"price"`
}

// Product is the result of a product lookup
type Product struct {
	SKU        string        `json:"sku"`
	Name       string        `json:"name"`
	Image      string        `json:"image"`
	MonthSales int           `json:"month_sale"`
	Regions    []RegionStock `json:"regions"`
}

// TotalQuantity sums stock across all regions
func (p *Product) TotalQuantity() int {
	total := 0
	for _, r := range p.Regions {
		total += r.Quantity
	}
	return total
}

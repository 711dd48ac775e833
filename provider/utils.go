package provider

import "strings"

// NormalizeSKU trims whitespace around a SKU code
func NormalizeSKU(sku string) string {
	return strings.TrimSpace(sku)
}

// DedupeRegions collapses repeated region ids. The last occurrence wins but
// keeps the position of the first one.
func DedupeRegions(regions []RegionStock) []RegionStock {
	if len(regions) == 0 {
		return nil
	}

	index := make(map[string]int, len(regions))
	out := make([]RegionStock, 0, len(regions))
	for _, r := range regions {
		r.RegionID = strings.TrimSpace(r.RegionID)
		if r.RegionID == "" {
			continue
		}
		if i, ok := index[r.RegionID]; ok {
			out[i] = r
			continue
		}
		index[r.RegionID] = len(out)
		out = append(out, r)
	}
	return out
}

// NormalizeProduct dedupes regions and clamps negative quantities to zero.
// The input is not modified.
func NormalizeProduct(p *Product) *Product {
	if p == nil {
		return nil
	}

	normalized := *p
	normalized.SKU = NormalizeSKU(p.SKU)
	normalized.Name = strings.TrimSpace(p.Name)
	normalized.Regions = DedupeRegions(p.Regions)
	for i := range normalized.Regions {
		if normalized.Regions[i].Quantity < 0 {
			normalized.Regions[i].Quantity = 0
		}
		if normalized.Regions[i].RegionName == "" {
			normalized.Regions[i].RegionName = normalized.Regions[i].RegionID
		}
	}
	if normalized.MonthSales < 0 {
		normalized.MonthSales = 0
	}
	return &normalized
}

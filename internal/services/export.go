package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// HistoryExporter renders a SKU's inventory history as a workbook with one
// sheet per region
type HistoryExporter struct {
	history *HistoryService
}

// NewHistoryExporter creates a new exporter
func NewHistoryExporter(history *HistoryService) *HistoryExporter {
	return &HistoryExporter{history: history}
}

var exportHeader = []interface{}{"Date", "Region ID", "Region", "Quantity", "Price"}

// Export builds the workbook. The caller must Close it.
func (e *HistoryExporter) Export(ctx context.Context, sku *models.TrackedSku) (*excelize.File, error) {
	records, err := e.history.RegionHistory(ctx, sku.ID, "")
	if err != nil {
		return nil, err
	}
	series, regions := GroupByRegion(records)

	f := excelize.NewFile()
	if len(regions) == 0 {
		if err := f.SetSheetName("Sheet1", "History"); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow("History", "A1", &exportHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
		return f, nil
	}

	used := make(map[string]bool, len(regions))
	for i, regionID := range regions {
		rows := series[regionID]
		name := uniqueSheetName(sheetName(rows[len(rows)-1].RegionName, regionID), used)

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				_ = f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, err
		}

		if err := writeRegionSheet(f, name, rows); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeRegionSheet(f *excelize.File, sheet string, rows []models.InventoryRecord) error {
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		price, _ := r.Price.Float64()
		row := []interface{}{r.RecordDate, r.RegionID, r.RegionName, r.Quantity, price}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func sheetName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Region"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		runes := []rune(name)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		candidate = string(runes) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

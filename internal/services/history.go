package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/provider"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryService stores daily per-region stock snapshots
type HistoryService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewHistoryService creates a new history store. Record dates are calendar
// days in loc.
func NewHistoryService(db *gorm.DB, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.Local
	}
	return &HistoryService{db: db, loc: loc, now: time.Now}
}

// SetClock replaces the time source
func (s *HistoryService) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current record date
func (s *HistoryService) Today() string {
	return models.DateOf(s.now().In(s.loc))
}

// Append upserts a single record keyed by (sku, region, day)
func (s *HistoryService) Append(ctx context.Context, record *models.InventoryRecord) error {
	return upsertRecords(s.db.WithContext(ctx), []models.InventoryRecord{*record})
}

// SaveSnapshot writes one fetch result for a tracked SKU: one record per
// region for today plus the cached display fields on the registry row. Both
// land in the same transaction.
func (s *HistoryService) SaveSnapshot(ctx context.Context, sku *models.TrackedSku, product *provider.Product) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		records, err = s.saveSnapshotTx(tx, sku, product)
		return err
	})
	return records, err
}

func (s *HistoryService) saveSnapshotTx(tx *gorm.DB, sku *models.TrackedSku, product *provider.Product) ([]models.InventoryRecord, error) {
	now := s.now().In(s.loc)
	day := models.DateOf(now)

	total := product.TotalQuantity()
	monthSales := product.MonthSales
	updates := map[string]interface{}{
		"latest_qty":         total,
		"latest_month_sale":  monthSales,
		"latest_record_time": now,
	}
	if product.Name != "" {
		updates["product_name"] = product.Name
	}
	if product.Image != "" {
		updates["product_image"] = product.Image
	}
	// A SKU removed while a run holds a stale copy must not get records.
	res := tx.Model(&models.TrackedSku{}).Where("id = ?", sku.ID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update sku snapshot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSkuRemoved, sku.Sku)
	}

	records := make([]models.InventoryRecord, 0, len(product.Regions))
	for _, r := range product.Regions {
		records = append(records, models.InventoryRecord{
			TrackedSkuID: sku.ID,
			RegionID:     r.RegionID,
			RegionName:   r.RegionName,
			Quantity:     r.Quantity,
			Price:        r.Price,
			RecordDate:   day,
		})
	}
	if err := upsertRecords(tx, records); err != nil {
		return nil, err
	}

	sku.LatestQty = &total
	sku.LatestMonthSale = &monthSales
	sku.LatestRecordTime = &now
	if product.Name != "" {
		sku.ProductName = product.Name
	}
	if product.Image != "" {
		sku.ProductImage = product.Image
	}
	return records, nil
}

func upsertRecords(tx *gorm.DB, records []models.InventoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tracked_sku_id"}, {Name: "region_id"}, {Name: "record_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"region_name", "quantity", "price", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("failed to upsert inventory records: %w", err)
	}
	return nil
}

// Query returns the SKU's records from the trailing windowDays calendar days,
// ascending by date then region. windowDays <= 0 returns the full history.
func (s *HistoryService) Query(ctx context.Context, trackedSkuID uint, windowDays int) ([]models.InventoryRecord, error) {
	query := s.db.WithContext(ctx).Where("tracked_sku_id = ?", trackedSkuID)
	if windowDays > 0 {
		cutoff := models.DateOf(s.now().In(s.loc).AddDate(0, 0, -windowDays))
		query = query.Where("record_date >= ?", cutoff)
	}

	var records []models.InventoryRecord
	if err := query.Order("record_date ASC, region_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// RegionHistory returns the full history of one SKU, optionally narrowed to a
// region
func (s *HistoryService) RegionHistory(ctx context.Context, trackedSkuID uint, regionID string) ([]models.InventoryRecord, error) {
	query := s.db.WithContext(ctx).Where("tracked_sku_id = ?", trackedSkuID)
	if regionID != "" {
		query = query.Where("region_id = ?", regionID)
	}

	var records []models.InventoryRecord
	if err := query.Order("record_date ASC, region_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// GroupByRegion splits records into per-region series. The returned region
// ids are sorted; each series keeps the input order.
func GroupByRegion(records []models.InventoryRecord) (map[string][]models.InventoryRecord, []string) {
	series := make(map[string][]models.InventoryRecord)
	for _, r := range records {
		series[r.RegionID] = append(series[r.RegionID], r)
	}

	regions := make([]string, 0, len(series))
	for id := range series {
		regions = append(regions, id)
	}
	sort.Strings(regions)
	return series, regions
}

// TrackWithSnapshot registers a new SKU and stores its first snapshot in one
// transaction. Nothing is written when either step fails.
func (s *HistoryService) TrackWithSnapshot(ctx context.Context, code string, product *provider.Product) (*models.TrackedSku, error) {
	sku := &models.TrackedSku{Sku: code, ProductName: product.Name, ProductImage: product.Image}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createTrackedSku(tx, sku); err != nil {
			return err
		}
		_, err := s.saveSnapshotTx(tx, sku, product)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sku, nil
}

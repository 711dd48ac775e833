package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyvadra/stockwatch/internal/models"
	"gorm.io/gorm"
)

// SkuService is the tracked-SKU registry
type SkuService struct {
	db *gorm.DB
}

// NewSkuService creates a new SKU registry
func NewSkuService(db *gorm.DB) *SkuService {
	return &SkuService{db: db}
}

// List returns every tracked SKU ordered by id
func (s *SkuService) List(ctx context.Context) ([]models.TrackedSku, error) {
	var skus []models.TrackedSku
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&skus).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracked skus: %w", err)
	}
	return skus, nil
}

// ListPage retrieves tracked SKUs with pagination, newest first
func (s *SkuService) ListPage(ctx context.Context, page, limit int) ([]models.TrackedSku, int64, error) {
	var skus []models.TrackedSku
	var total int64

	query := s.db.WithContext(ctx).Model(&models.TrackedSku{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC, id DESC").Find(&skus).Error; err != nil {
		return nil, 0, err
	}

	return skus, total, nil
}

// Get retrieves a tracked SKU by id
func (s *SkuService) Get(ctx context.Context, id uint) (*models.TrackedSku, error) {
	var sku models.TrackedSku
	if err := s.db.WithContext(ctx).First(&sku, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrSkuNotFound, id)
		}
		return nil, err
	}
	return &sku, nil
}

// GetByCode retrieves a tracked SKU by its product code
func (s *SkuService) GetByCode(ctx context.Context, code string) (*models.TrackedSku, error) {
	var sku models.TrackedSku
	if err := s.db.WithContext(ctx).Where("sku = ?", strings.TrimSpace(code)).First(&sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSkuNotFound, code)
		}
		return nil, err
	}
	return &sku, nil
}

// Exists reports whether a SKU code is already tracked
func (s *SkuService) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TrackedSku{}).Where("sku = ?", strings.TrimSpace(code)).Count(&count).Error
	return count > 0, err
}

// HasHistory reports whether any inventory records exist for the SKU
func (s *SkuService) HasHistory(ctx context.Context, id uint) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.InventoryRecord{}).Where("tracked_sku_id = ?", id).Count(&count).Error
	return count > 0, err
}

// Remove deletes a tracked SKU together with its history and alerts
func (s *SkuService) Remove(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.TrackedSku{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", ErrSkuNotFound, id)
		}
		if err := tx.Where("tracked_sku_id = ?", id).Delete(&models.InventoryRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		if err := tx.Where("tracked_sku_id = ?", id).Delete(&models.Alert{}).Error; err != nil {
			return fmt.Errorf("failed to delete alerts: %w", err)
		}
		return nil
	})
}

// createTrackedSku inserts a new registry row inside tx
func createTrackedSku(tx *gorm.DB, sku *models.TrackedSku) error {
	var count int64
	if err := tx.Model(&models.TrackedSku{}).Where("sku = ?", sku.Sku).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, sku.Sku)
	}
	return tx.Create(sku).Error
}

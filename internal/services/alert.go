package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Cyvadra/stockwatch/internal/models"
	"gorm.io/gorm"
)

// AlertFilter narrows alert listings. Zero fields are ignored.
type AlertFilter struct {
	TrackedSkuID uint
	RegionID     string
	MinLevel     models.AlertLevel
	Since        time.Time
}

// AlertService handles alert-related operations
type AlertService struct {
	db *gorm.DB
}

// NewAlertService creates a new alert service
func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

// SaveAlert saves an alert to the database
func (s *AlertService) SaveAlert(ctx context.Context, alert *models.Alert) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TrackedSku{}).Where("id = ?", alert.TrackedSkuID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrSkuRemoved, alert.Sku)
		}
		return tx.Create(alert).Error
	})
	if err != nil {
		return err
	}
	alertsCreatedTotal.WithLabelValues(alert.AlertLevel.String()).Inc()
	return nil
}

// GetAlert retrieves an alert by ID
func (s *AlertService) GetAlert(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %d: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, err
	}
	return &alert, nil
}

// GetAlerts retrieves alerts with pagination, newest first
func (s *AlertService) GetAlerts(ctx context.Context, filter AlertFilter, page, limit int) ([]models.Alert, int64, error) {
	var alerts []models.Alert
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Alert{})
	if filter.TrackedSkuID != 0 {
		query = query.Where("tracked_sku_id = ?", filter.TrackedSkuID)
	}
	if filter.RegionID != "" {
		query = query.Where("region_id = ?", filter.RegionID)
	}
	if filter.MinLevel > models.AlertLevelNone {
		query = query.Where("alert_level >= ?", filter.MinLevel)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// GetAlertsBySku retrieves the most recent alerts of one SKU
func (s *AlertService) GetAlertsBySku(ctx context.Context, trackedSkuID uint, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).Where("tracked_sku_id = ?", trackedSkuID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

package services

import (
	"context"

	"github.com/Cyvadra/stockwatch/internal/models"
	"gorm.io/gorm"
)

// RunLogService persists the history of pipeline runs
type RunLogService struct {
	db *gorm.DB
}

// NewRunLogService creates a new run log store
func NewRunLogService(db *gorm.DB) *RunLogService {
	return &RunLogService{db: db}
}

// Record stores a finished run
func (s *RunLogService) Record(ctx context.Context, log *models.RunLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

// GetRunLogs retrieves run logs with pagination, newest first
func (s *RunLogService) GetRunLogs(ctx context.Context, kind models.RunKind, page, limit int) ([]models.RunLog, int64, error) {
	var logs []models.RunLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.RunLog{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Order("started_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

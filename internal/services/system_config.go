package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Cyvadra/stockwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemConfigService stores operator-editable thresholds
type SystemConfigService struct {
	db *gorm.DB
}

// NewSystemConfigService creates a new system config store
func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

// GetAll returns every stored key/value pair
func (s *SystemConfigService) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []models.SystemConfig
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load system configs: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	return values, nil
}

// Set upserts the given values. Unknown keys reject the whole batch; the
// last write to a key wins.
func (s *SystemConfigService) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	rows := make([]models.SystemConfig, 0, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if !isKnownConfigKey(key) {
			return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
		}
		rows = append(rows, models.SystemConfig{Key: key, Value: strings.TrimSpace(value)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

// SeedDefaults stores defaults for keys that have no value yet
func (s *SystemConfigService) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	rows := make([]models.SystemConfig, 0, len(defaults))
	for key, value := range defaults {
		rows = append(rows, models.SystemConfig{Key: key, Value: value})
	}
	if len(rows) == 0 {
		return nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// LoadThresholds reads and parses the alert thresholds. Unusable values fall
// back to their defaults and are reported as ConfigErrors.
func (s *SystemConfigService) LoadThresholds(ctx context.Context) (Thresholds, []*ConfigError, error) {
	values, err := s.GetAll(ctx)
	if err != nil {
		return DefaultThresholds(), nil, err
	}
	thresholds, problems := ParseThresholds(values)
	return thresholds, problems, nil
}

func isKnownConfigKey(key string) bool {
	for _, k := range models.KnownConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

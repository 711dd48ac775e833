package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/Cyvadra/stockwatch/provider"
	"gorm.io/gorm"
)

// SearchConfigService manages saved SKU searches
type SearchConfigService struct {
	db *gorm.DB
}

// NewSearchConfigService creates a new search config store
func NewSearchConfigService(db *gorm.DB) *SearchConfigService {
	return &SearchConfigService{db: db}
}

// List returns all search configs
func (s *SearchConfigService) List(ctx context.Context) ([]models.SearchConfig, error) {
	var configs []models.SearchConfig
	err := s.db.WithContext(ctx).Order("id ASC").Find(&configs).Error
	return configs, err
}

// Get retrieves a search config by id
func (s *SearchConfigService) Get(ctx context.Context, id uint) (*models.SearchConfig, error) {
	var cfg models.SearchConfig
	if err := s.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrConfigNotFound, id)
		}
		return nil, err
	}
	return &cfg, nil
}

// Save creates or updates a search config
func (s *SearchConfigService) Save(ctx context.Context, cfg *models.SearchConfig) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return validationError("name is required")
	}
	cfg.Skus = normalizeList(cfg.Skus)
	if len(cfg.Skus) == 0 {
		return validationError("at least one sku is required")
	}
	cfg.Regions = normalizeList(cfg.Regions)
	if cfg.MinQuantity < 0 {
		return validationError("min_quantity must be >= 0")
	}

	if cfg.ID != 0 {
		if _, err := s.Get(ctx, cfg.ID); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Save(cfg).Error
}

// Delete removes a search config. Schedules still pointing at it fail when
// they fire.
func (s *SearchConfigService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.SearchConfig{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrConfigNotFound, id)
	}
	return nil
}

// MatchHits returns the regions of product that satisfy the search
func MatchHits(cfg *models.SearchConfig, product *provider.Product) []models.SearchHit {
	wanted := make(map[string]bool, len(cfg.Regions))
	for _, r := range cfg.Regions {
		wanted[strings.ToLower(r)] = true
	}

	var hits []models.SearchHit
	for _, r := range product.Regions {
		if len(wanted) > 0 && !wanted[strings.ToLower(r.RegionID)] && !wanted[strings.ToLower(r.RegionName)] {
			continue
		}
		if r.Quantity <= 0 || r.Quantity < cfg.MinQuantity {
			continue
		}
		hits = append(hits, models.SearchHit{
			Sku:         product.SKU,
			ProductName: product.Name,
			RegionID:    r.RegionID,
			RegionName:  r.RegionName,
			Quantity:    r.Quantity,
		})
	}
	return hits
}

func normalizeList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

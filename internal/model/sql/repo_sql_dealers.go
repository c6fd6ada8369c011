package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/utils"
	"gorm.io/gorm"
)

func preloadOutfits(db *gorm.DB) *gorm.DB {
	return db.Preload("Outfits", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("stage ASC")
	})
}

// CreateDealer persists a new dealer record.
func (r *GormRepository) CreateDealer(ctx context.Context, dealer *entity.DbDealer) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if dealer == nil {
		return fmt.Errorf("dealer is nil")
	}

	entity.PrepareDealer(dealer, utils.GenerateUUID(), time.Now().UTC())
	// outfits are only written through UpsertOutfit
	return r.db.WithContext(ctx).Omit("Outfits").Create(dealer).Error
}

// GetDealer loads a dealer with its outfits ordered by stage.
func (r *GormRepository) GetDealer(ctx context.Context, id string) (*entity.DbDealer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("dealer %q: %w", id, entity.ErrNotFound)
	}

	var dealer entity.DbDealer
	if err := preloadOutfits(r.db.WithContext(ctx)).Where("id = ?", id).First(&dealer).Error; err != nil {
		return nil, mapNotFound(err, "dealer", id)
	}
	if dealer.Outfits == nil {
		dealer.Outfits = []entity.DbOutfit{}
	}
	return &dealer, nil
}

// ListDealers returns paginated dealers, newest first.
func (r *GormRepository) ListDealers(ctx context.Context, params *entity.DealerQuery) ([]entity.DbDealer, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbDealer{})
	var base entity.BaseParams
	if params != nil {
		base = params.BaseParams
		if params.IsActive != nil {
			query = query.Where("is_active = ?", *params.IsActive)
		}
		if params.IsPremium != nil {
			query = query.Where("is_premium = ?", *params.IsPremium)
		}
		if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
			kw := "%" + strings.ToLower(keyword) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(personality) LIKE ?", kw, kw)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize := base.Normalize()
	var dealers []entity.DbDealer
	if err := preloadOutfits(query).
		Order("created_at DESC").Order("id DESC").
		Offset(base.Offset()).Limit(pageSize).
		Find(&dealers).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return dealers, meta, nil
}

// CountDealers returns total dealer count.
func (r *GormRepository) CountDealers(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.DbDealer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateDealer merges the given fields and refreshes updated_at.
func (r *GormRepository) UpdateDealer(ctx context.Context, id string, updates entity.DealerUpdates) (*entity.DbDealer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	values := updates.ToMap()
	values["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&entity.DbDealer{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("dealer %s: %w", id, entity.ErrNotFound)
	}
	return r.GetDealer(ctx, id)
}

// DeleteDealer removes a dealer and its outfits.
func (r *GormRepository) DeleteDealer(ctx context.Context, id string) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("repository not initialised")
	}

	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dealer_id = ?", id).Delete(&entity.DbOutfit{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.DbDealer{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

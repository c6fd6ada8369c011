package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/utils"
	"gorm.io/gorm"
)

// UpsertOutfit replaces the dealer's outfit for the same stage and returns
// the row it replaced.
//
// The dealer row is touched first so concurrent upserts on one dealer
// serialise on its row lock; the unique (dealer_id, stage) index keeps one
// outfit per stage.
func (r *GormRepository) UpsertOutfit(ctx context.Context, dealerID string, outfit *entity.DbOutfit) (*entity.DbOutfit, *entity.DbOutfit, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if outfit == nil {
		return nil, nil, fmt.Errorf("outfit is nil")
	}

	now := time.Now().UTC()
	record, err := entity.PrepareOutfit(dealerID, *outfit, utils.GenerateUUID(), now)
	if err != nil {
		return nil, nil, err
	}

	var replaced *entity.DbOutfit

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.DbDealer{}).Where("id = ?", dealerID).Update("updated_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("dealer %s: %w", dealerID, entity.ErrNotFound)
		}

		var existing []entity.DbOutfit
		if err := tx.Where("dealer_id = ? AND stage = ?", dealerID, record.Stage).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			replaced = &existing[0]
			if err := tx.Where("id = ?", replaced.ID).Delete(&entity.DbOutfit{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &record, replaced, nil
}

// ApproveOutfit marks an outfit approved. Approving twice succeeds.
func (r *GormRepository) ApproveOutfit(ctx context.Context, dealerID, outfitID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, fmt.Errorf("repository not initialised")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var outfit entity.DbOutfit
		if err := tx.Where("id = ? AND dealer_id = ?", outfitID, dealerID).First(&outfit).Error; err != nil {
			return mapNotFound(err, "outfit", outfitID)
		}
		if !outfit.Approved {
			if err := tx.Model(&entity.DbOutfit{}).Where("id = ?", outfit.ID).Update("approved", true).Error; err != nil {
				return err
			}
		}
		return tx.Model(&entity.DbDealer{}).Where("id = ?", dealerID).Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Package memory 提供进程内的 dealer 仓库，用于测试和临时会话。
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/utils"
)

// Repository 用互斥锁保护的 map 保存 dealer，读取总是返回深拷贝。
type Repository struct {
	mu      sync.RWMutex
	dealers map[string]*entity.DbDealer
	now     func() time.Time
	newID   func() string
}

// NewRepository 创建空的内存仓库
func NewRepository() *Repository {
	return &Repository{
		dealers: make(map[string]*entity.DbDealer),
		now:     time.Now,
		newID:   utils.GenerateUUID,
	}
}

func (r *Repository) CreateDealer(ctx context.Context, dealer *entity.DbDealer) error {
	if dealer == nil {
		return fmt.Errorf("dealer is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entity.PrepareDealer(dealer, r.newID(), r.now().UTC())
	r.dealers[dealer.ID] = dealer.Clone()
	return nil
}

func (r *Repository) GetDealer(ctx context.Context, id string) (*entity.DbDealer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.dealers[id]
	if !ok {
		return nil, fmt.Errorf("dealer %s: %w", id, entity.ErrNotFound)
	}
	out := stored.Clone()
	out.SortOutfits()
	return out, nil
}

func (r *Repository) ListDealers(ctx context.Context, params *entity.DealerQuery) ([]entity.DbDealer, *entity.Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r.mu.RLock()
	matched := make([]entity.DbDealer, 0, len(r.dealers))
	for _, stored := range r.dealers {
		if !params.Matches(stored) {
			continue
		}
		d := stored.Clone()
		d.SortOutfits()
		matched = append(matched, *d)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	var base entity.BaseParams
	if params != nil {
		base = params.BaseParams
	}
	page, pageSize := base.Normalize()
	total := len(matched)
	start := base.Offset()
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	meta := &entity.Meta{Page: int64(page), PageSize: int64(pageSize), Total: int64(total)}
	return matched[start:end], meta, nil
}

func (r *Repository) CountDealers(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.dealers)), nil
}

func (r *Repository) UpdateDealer(ctx context.Context, id string, updates entity.DealerUpdates) (*entity.DbDealer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.dealers[id]
	if !ok {
		return nil, fmt.Errorf("dealer %s: %w", id, entity.ErrNotFound)
	}
	updates.Apply(stored, r.now().UTC())
	out := stored.Clone()
	out.SortOutfits()
	return out, nil
}

func (r *Repository) DeleteDealer(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dealers[id]; !ok {
		return false, nil
	}
	delete(r.dealers, id)
	return true, nil
}

func (r *Repository) UpsertOutfit(ctx context.Context, dealerID string, outfit *entity.DbOutfit) (*entity.DbOutfit, *entity.DbOutfit, error) {
	if outfit == nil {
		return nil, nil, fmt.Errorf("outfit is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.dealers[dealerID]
	if !ok {
		return nil, nil, fmt.Errorf("dealer %s: %w", dealerID, entity.ErrNotFound)
	}

	now := r.now().UTC()
	record, err := entity.PrepareOutfit(dealerID, *outfit, r.newID(), now)
	if err != nil {
		return nil, nil, err
	}

	var replaced *entity.DbOutfit
	kept := make([]entity.DbOutfit, 0, len(stored.Outfits)+1)
	for _, existing := range stored.Outfits {
		if existing.Stage == record.Stage {
			old := existing
			replaced = &old
			continue
		}
		kept = append(kept, existing)
	}
	stored.Outfits = append(kept, record)
	stored.UpdatedAt = now

	out := record
	return &out, replaced, nil
}

func (r *Repository) ApproveOutfit(ctx context.Context, dealerID, outfitID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.dealers[dealerID]
	if !ok {
		return false, fmt.Errorf("dealer %s: %w", dealerID, entity.ErrNotFound)
	}
	for i := range stored.Outfits {
		if stored.Outfits[i].ID == outfitID {
			stored.Outfits[i].Approved = true
			stored.UpdatedAt = r.now().UTC()
			return true, nil
		}
	}
	return false, fmt.Errorf("outfit %s: %w", outfitID, entity.ErrNotFound)
}

func (r *Repository) Close(context.Context) error {
	return nil
}

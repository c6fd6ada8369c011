package model

import (
	"context"

	"github.com/Louistrash/kaartmodellen/internal/entity"
)

// Repository 定义 dealer/outfit 持久化操作，是持久化状态的唯一写入方。
//
// 所有实现都将各自的 not-found 错误映射为 entity.ErrNotFound。
type Repository interface {
	// CreateDealer 分配 id，写入相同的创建/更新时间，outfits 置空。
	CreateDealer(ctx context.Context, dealer *entity.DbDealer) error
	GetDealer(ctx context.Context, id string) (*entity.DbDealer, error)
	ListDealers(ctx context.Context, params *entity.DealerQuery) ([]entity.DbDealer, *entity.Meta, error)
	CountDealers(ctx context.Context) (int64, error)
	// UpdateDealer 合并字段并刷新 updated_at，返回更新后的 dealer。
	UpdateDealer(ctx context.Context, id string, updates entity.DealerUpdates) (*entity.DbDealer, error)
	// DeleteDealer 幂等删除，dealer 不存在时返回 false。
	DeleteDealer(ctx context.Context, id string) (bool, error)

	// UpsertOutfit 替换同阶段的 outfit（不合并、不归档），分配新 id，approved 置为 false。
	// replaced 是同一事务内被替换掉的旧 outfit，该阶段此前为空时为 nil。
	UpsertOutfit(ctx context.Context, dealerID string, outfit *entity.DbOutfit) (saved, replaced *entity.DbOutfit, err error)
	// ApproveOutfit 将 outfit 标记为已审核，重复审核同样返回 true。
	ApproveOutfit(ctx context.Context, dealerID, outfitID string) (bool, error)

	Close(ctx context.Context) error
}

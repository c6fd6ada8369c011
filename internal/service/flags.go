package service

import (
	"context"
	"fmt"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/sirupsen/logrus"
)

// 支持乐观切换的 dealer 标记
const (
	FlagActive  = "is_active"
	FlagPremium = "is_premium"
)

// FlagChange 记录一次乐观切换。客户端先展示 Requested，
// 失败时恢复为 Previous。
type FlagChange struct {
	Flag      string `json:"flag"`
	Previous  bool   `json:"previous"`
	Requested bool   `json:"requested"`
}

// Revert 返回切换失败后调用方应恢复的值
func (c FlagChange) Revert() bool {
	return c.Previous
}

// SetActive 切换上架状态
func (s *DealerService) SetActive(ctx context.Context, id string, value bool) (*entity.DbDealer, FlagChange, error) {
	return s.setFlag(ctx, id, FlagActive, value)
}

// SetPremium 切换高级标记
func (s *DealerService) SetPremium(ctx context.Context, id string, value bool) (*entity.DbDealer, FlagChange, error) {
	return s.setFlag(ctx, id, FlagPremium, value)
}

func (s *DealerService) setFlag(ctx context.Context, id, flag string, value bool) (*entity.DbDealer, FlagChange, error) {
	// 未知旧值时，按取反推断（客户端在请求前已显示 value）
	change := FlagChange{Flag: flag, Previous: !value, Requested: value}
	if err := s.ready(); err != nil {
		return nil, change, err
	}

	current, err := s.repo.GetDealer(ctx, id)
	if err != nil {
		return nil, change, fmt.Errorf("set %s: %w", flag, err)
	}
	var updates entity.DealerUpdates
	switch flag {
	case FlagActive:
		change.Previous = current.IsActive
		updates.IsActive = &value
	case FlagPremium:
		change.Previous = current.IsPremium
		updates.IsPremium = &value
	default:
		return nil, change, fmt.Errorf("%w: unknown flag %q", entity.ErrInvalidRequest, flag)
	}

	dealer, err := s.repo.UpdateDealer(ctx, id, updates)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"dealer_id": id,
			"flag":      flag,
			"revert_to": change.Revert(),
		}).Warn("dealer_flag_update_failed")
		return nil, change, fmt.Errorf("set %s: %w", flag, err)
	}
	return dealer, change, nil
}

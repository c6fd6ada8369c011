package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/Louistrash/kaartmodellen/internal/model"
	"github.com/Louistrash/kaartmodellen/internal/storage"
	"github.com/sirupsen/logrus"
)

// DealerService 封装 dealer 生命周期：增删改查、阶段图片生成、审批与标记切换。
type DealerService struct {
	repo      model.Repository
	generator llm.ImageGenerator
	storage   storage.Storage
	cfg       config.Config

	// httpClient 用于镜像下载，测试可替换
	httpClient *http.Client

	inflightMu sync.Mutex
	inflight   map[inflightKey]struct{}

	// notifyFunc 用于推送生成事件（由调用方设置）
	notifyFunc func(event entity.GenerationEvent)
}

type inflightKey struct {
	dealerID string
	stage    entity.Stage
}

// NewDealerService 创建 dealer 服务实例。store 可为空，此时不做镜像。
func NewDealerService(repo model.Repository, generator llm.ImageGenerator, store storage.Storage, cfg config.Config) *DealerService {
	return &DealerService{
		repo:       repo,
		generator:  generator,
		storage:    store,
		cfg:        cfg,
		httpClient: http.DefaultClient,
		inflight:   make(map[inflightKey]struct{}),
	}
}

// SetNotifyFunc 设置生成事件的通知函数（用于 SSE 推送）
func (s *DealerService) SetNotifyFunc(fn func(event entity.GenerationEvent)) {
	s.notifyFunc = fn
}

// SetHTTPClient 替换镜像下载使用的 HTTP 客户端
func (s *DealerService) SetHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

func (s *DealerService) ready() error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("%w: repository not initialised", entity.ErrConfiguration)
	}
	return nil
}

// CreateDealer 校验请求并创建一个没有 outfit 的 dealer
func (s *DealerService) CreateDealer(ctx context.Context, req entity.DealerCreateRequest) (*entity.DbDealer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	personality := strings.TrimSpace(req.Personality)
	modelLabel := entity.NormalizeModel(req.Model)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", entity.ErrInvalidRequest)
	case personality == "":
		return nil, fmt.Errorf("%w: personality is required", entity.ErrInvalidRequest)
	case modelLabel == "":
		return nil, fmt.Errorf("%w: model is required", entity.ErrInvalidRequest)
	}

	dealer := &entity.DbDealer{
		Name:        name,
		Personality: personality,
		Model:       modelLabel,
		IsActive:    true,
	}
	if req.IsActive != nil {
		dealer.IsActive = *req.IsActive
	}
	if req.IsPremium != nil {
		dealer.IsPremium = *req.IsPremium
	}

	if err := s.repo.CreateDealer(ctx, dealer); err != nil {
		return nil, fmt.Errorf("create dealer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"dealer_id": dealer.ID,
		"model":     dealer.Model,
	}).Info("dealer_created")
	return dealer, nil
}

// GetDealer 返回 dealer，outfits 按阶段排序
func (s *DealerService) GetDealer(ctx context.Context, id string) (*entity.DbDealer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: dealer id is required", entity.ErrInvalidRequest)
	}
	return s.repo.GetDealer(ctx, id)
}

// ListDealers 按筛选条件分页查询
func (s *DealerService) ListDealers(ctx context.Context, query *entity.DealerQuery) ([]entity.DbDealer, *entity.Meta, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	return s.repo.ListDealers(ctx, query)
}

// UpdateDealer 局部更新，传入的字符串字段不能为空白
func (s *DealerService) UpdateDealer(ctx context.Context, id string, updates entity.DealerUpdates) (*entity.DbDealer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := normaliseUpdates(&updates); err != nil {
		return nil, err
	}
	if updates.IsEmpty() {
		return s.GetDealer(ctx, id)
	}
	dealer, err := s.repo.UpdateDealer(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update dealer: %w", err)
	}
	return dealer, nil
}

func normaliseUpdates(u *entity.DealerUpdates) error {
	trim := func(field string, value *string) (*string, error) {
		if value == nil {
			return nil, nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: %s must not be empty", entity.ErrInvalidRequest, field)
		}
		return &trimmed, nil
	}

	var err error
	if u.Name, err = trim("name", u.Name); err != nil {
		return err
	}
	if u.Personality, err = trim("personality", u.Personality); err != nil {
		return err
	}
	if u.Model, err = trim("model", u.Model); err != nil {
		return err
	}
	if u.Model != nil {
		normalized := entity.NormalizeModel(*u.Model)
		u.Model = &normalized
	}
	return nil
}

// DeleteDealer 删除 dealer 及其 outfits，随后尽力清理该 dealer 前缀下的全部镜像。
func (s *DealerService) DeleteDealer(ctx context.Context, id string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	deleted, err := s.repo.DeleteDealer(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete dealer: %w", err)
	}
	if !deleted {
		return false, nil
	}

	fields := logrus.Fields{"dealer_id": id}
	if s.storage != nil {
		removed, err := s.storage.DeleteDealer(context.WithoutCancel(ctx), id)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Warn("failed to delete dealer mirrors")
		}
		fields["mirrors_removed"] = removed
	}
	logrus.WithFields(fields).Info("dealer_deleted")
	return true, nil
}

// ApproveOutfit 审核通过 outfit 并返回最新的 dealer
func (s *DealerService) ApproveOutfit(ctx context.Context, dealerID, outfitID string) (*entity.DbDealer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(outfitID) == "" {
		return nil, fmt.Errorf("%w: outfit id is required", entity.ErrInvalidRequest)
	}
	if _, err := s.repo.ApproveOutfit(ctx, dealerID, outfitID); err != nil {
		return nil, fmt.Errorf("approve outfit: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"dealer_id": dealerID,
		"outfit_id": outfitID,
	}).Info("outfit_approved")
	return s.repo.GetDealer(ctx, dealerID)
}

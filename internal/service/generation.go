package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/storage"
	"github.com/Louistrash/kaartmodellen/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const outfitPromptSuffix = "outfit, high quality, detailed, professional, casino setting, blackjack table, clear face, good lighting"

// BuildOutfitPrompt 拼接单个阶段的生成提示词。
func BuildOutfitPrompt(personality string, stage entity.Stage, extra string) (string, error) {
	stageName, err := entity.StageName(stage)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("%s dealer in %s %s", strings.TrimSpace(personality), stageName, outfitPromptSuffix)
	if extra = strings.TrimSpace(extra); extra != "" {
		prompt += ", " + extra
	}
	return prompt, nil
}

// GenerateStage 为 dealer 的一个阶段生成新图片并替换该阶段的 outfit。
// 任何失败都不会落库，原 outfit 保持不变。
func (s *DealerService) GenerateStage(ctx context.Context, dealerID string, stage entity.Stage, opts entity.GenerateStageRequest) (*entity.DbDealer, *entity.DbOutfit, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	if s.generator == nil {
		return nil, nil, fmt.Errorf("%w: image generator not initialised", entity.ErrConfiguration)
	}
	if _, err := entity.StageName(stage); err != nil {
		return nil, nil, err
	}

	// 先占位再读取 dealer，后到的同阶段请求不会拿着过期快照生成
	release, ok := s.acquire(dealerID, stage)
	if !ok {
		return nil, nil, fmt.Errorf("dealer %s stage %d: %w", dealerID, stage, entity.ErrGenerationInProgress)
	}
	defer release()

	dealer, err := s.repo.GetDealer(ctx, dealerID)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"dealer_id": dealer.ID,
		"stage":     int(stage),
	})
	s.notify(entity.GenerationEvent{DealerID: dealer.ID, Stage: stage, Status: entity.GenerationStatusGenerating})

	outfit, err := s.runGeneration(ctx, dealer, stage, opts)
	if err != nil {
		logger.WithError(err).Error("outfit_generation_failed")
		s.notify(entity.GenerationEvent{DealerID: dealer.ID, Stage: stage, Status: entity.GenerationStatusFailed, Error: err.Error()})
		return nil, nil, err
	}

	logger.WithField("outfit_id", outfit.ID).Info("outfit_generation_committed")
	s.notify(entity.GenerationEvent{
		DealerID: dealer.ID,
		Stage:    stage,
		Status:   entity.GenerationStatusCommitted,
		OutfitID: outfit.ID,
		ImageURL: outfit.ImageURL,
	})

	refreshed, err := s.repo.GetDealer(ctx, dealer.ID)
	if err != nil {
		return nil, nil, err
	}
	return refreshed, outfit, nil
}

func (s *DealerService) runGeneration(parent context.Context, dealer *entity.DbDealer, stage entity.Stage, opts entity.GenerateStageRequest) (*entity.DbOutfit, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.GenerationTimeout())
	defer cancel()

	prompt, err := BuildOutfitPrompt(dealer.Personality, stage, opts.ExtraPrompt)
	if err != nil {
		return nil, err
	}
	modelLabel := dealer.Model
	if override := strings.TrimSpace(opts.Model); override != "" {
		modelLabel = entity.NormalizeModel(override)
	}

	imageURL, err := s.generator.Generate(ctx, entity.GenerationRequest{
		Prompt:            prompt,
		Model:             modelLabel,
		ReferenceImageURL: strings.TrimSpace(opts.ReferenceImageURL),
		APIKey:            strings.TrimSpace(opts.APIKey),
	})
	if err != nil {
		return nil, err
	}

	record := entity.DbOutfit{Stage: stage, ImageURL: imageURL}
	if s.cfg.ImageMirrorEnabled {
		publicURL, key, err := s.mirrorImage(ctx, dealer.ID, stage, imageURL)
		if err != nil {
			return nil, err
		}
		record.ImageURL = publicURL
		record.StorageKey = key
	}

	saved, replaced, err := s.repo.UpsertOutfit(ctx, dealer.ID, &record)
	if err != nil {
		if record.StorageKey != "" {
			s.deleteMirrored(parent, dealer.ID, record.StorageKey)
		}
		return nil, fmt.Errorf("save outfit: %w", err)
	}
	// 以仓库返回的被替换记录为准，而不是生成前读到的快照
	if replaced != nil && replaced.StorageKey != "" && replaced.StorageKey != saved.StorageKey {
		s.deleteMirrored(parent, dealer.ID, replaced.StorageKey)
	}
	return saved, nil
}

// mirrorImage 把供应商图片复制到对象存储，返回公开 URL 和对象 key。
func (s *DealerService) mirrorImage(ctx context.Context, dealerID string, stage entity.Stage, imageURL string) (string, string, error) {
	if s.storage == nil {
		return "", "", fmt.Errorf("%w: image mirroring enabled without storage", entity.ErrConfiguration)
	}

	data, ext, err := utils.DownloadImage(ctx, s.httpClient, imageURL)
	if err != nil {
		return "", "", fmt.Errorf("mirror image: %w", err)
	}

	key, err := s.storage.SaveOutfit(ctx, data, storage.OutfitObject{
		DealerID:  dealerID,
		Stage:     int(stage),
		Extension: ext,
	})
	if err != nil {
		return "", "", fmt.Errorf("mirror image: %w", err)
	}

	publicURL := utils.JoinPublicURL(s.cfg.StoragePublicBaseURL, key)
	if !utils.IsAbsoluteURL(publicURL) {
		s.deleteMirrored(ctx, dealerID, key)
		return "", "", fmt.Errorf("%w: public url %q is not absolute, check STORAGE_PUBLIC_BASE_URL", entity.ErrConfiguration, publicURL)
	}
	return publicURL, key, nil
}

func (s *DealerService) deleteMirrored(ctx context.Context, dealerID, key string) {
	if s.storage == nil || strings.TrimSpace(key) == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"dealer_id":   dealerID,
			"storage_key": key,
		}).Warn("failed to delete mirrored image")
	}
}

// GenerateMissingStages 以有限并发生成所有缺失阶段，单个阶段失败只记录不中断。
func (s *DealerService) GenerateMissingStages(ctx context.Context, dealerID string, opts entity.GenerateStageRequest) (*entity.BatchGenerationResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	dealer, err := s.repo.GetDealer(ctx, dealerID)
	if err != nil {
		return nil, err
	}

	missing := dealer.MissingStages()
	result := &entity.BatchGenerationResult{Generated: []entity.Stage{}}
	if len(missing) > 0 {
		var (
			mu sync.Mutex
			g  errgroup.Group
		)
		limit := s.cfg.GenerationConcurrency
		if limit <= 0 {
			limit = 1
		}
		g.SetLimit(limit)

		for _, stage := range missing {
			g.Go(func() error {
				_, _, genErr := s.GenerateStage(ctx, dealer.ID, stage, opts)
				mu.Lock()
				defer mu.Unlock()
				if genErr != nil {
					if result.Failures == nil {
						result.Failures = make(map[entity.Stage]string)
					}
					result.Failures[stage] = genErr.Error()
					return nil
				}
				result.Generated = append(result.Generated, stage)
				return nil
			})
		}
		_ = g.Wait()
		sort.Slice(result.Generated, func(i, j int) bool { return result.Generated[i] < result.Generated[j] })
	}

	refreshed, err := s.repo.GetDealer(ctx, dealer.ID)
	if err != nil {
		return nil, err
	}
	result.Dealer = refreshed
	if len(missing) > 0 && len(result.Generated) == 0 && len(result.Failures) > 0 {
		logrus.WithFields(logrus.Fields{
			"dealer_id": dealer.ID,
			"failures":  len(result.Failures),
		}).Warn("batch_generation_failed")
	}
	return result, nil
}

func (s *DealerService) acquire(dealerID string, stage entity.Stage) (func(), bool) {
	key := inflightKey{dealerID: dealerID, stage: stage}
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, false
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
	}, true
}

func (s *DealerService) notify(event entity.GenerationEvent) {
	if s.notifyFunc == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	s.notifyFunc(event)
}

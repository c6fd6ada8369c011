package model

import (
	"context"
	"fmt"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/sirupsen/logrus"
)

type dealerSeed struct {
	Dealer  entity.DbDealer
	Outfits []entity.DbOutfit
}

// SeedDemoDealers 在开启演示数据且仓库为空时写入示例 dealer
func SeedDemoDealers(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil || !cfg.SeedDemoDealers {
		return nil
	}

	count, err := repo.CountDealers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, seed := range buildDemoDealerSeeds() {
		if err := createSeedDealer(ctx, repo, seed); err != nil {
			return fmt.Errorf("seed dealer %s: %w", seed.Dealer.Name, err)
		}
	}
	logrus.WithField("count", len(buildDemoDealerSeeds())).Info("seeded demo dealers")
	return nil
}

func createSeedDealer(ctx context.Context, repo Repository, seed dealerSeed) error {
	dealer := seed.Dealer
	if err := repo.CreateDealer(ctx, &dealer); err != nil {
		return err
	}

	for _, outfitSeed := range seed.Outfits {
		outfit := outfitSeed
		approved := outfit.Approved
		saved, _, err := repo.UpsertOutfit(ctx, dealer.ID, &outfit)
		if err != nil {
			return err
		}
		if approved {
			if _, err := repo.ApproveOutfit(ctx, dealer.ID, saved.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildDemoDealerSeeds() []dealerSeed {
	return []dealerSeed{
		{
			Dealer: entity.DbDealer{
				Name:        "Sophia",
				Personality: "Elegant & Sophisticated",
				Model:       entity.ModelStableDiffusionXL,
				IsActive:    true,
				IsPremium:   true,
			},
			Outfits: []entity.DbOutfit{
				{
					Stage:    entity.StageCasinoUniform,
					ImageURL: "https://images.unsplash.com/photo-1589135006062-5b7e4a749194?q=80&w=300&h=400&auto=format&fit=crop",
					Approved: true,
				},
				{
					Stage:    entity.StageRelaxedAttire,
					ImageURL: "https://images.unsplash.com/photo-1609710228159-0fa9bd7c0827?q=80&w=300&h=400&auto=format&fit=crop",
					Approved: true,
				},
				{
					Stage:    entity.StageCasualFormal,
					Name:     "Formal Look",
					ImageURL: "https://images.unsplash.com/photo-1529626455594-4ff0802cfb7e?q=80&w=300&h=400&auto=format&fit=crop",
					Approved: true,
				},
			},
		},
		{
			Dealer: entity.DbDealer{
				Name:        "Isabella",
				Personality: "Playful & Charming",
				Model:       entity.ModelDallE3,
				IsActive:    true,
				IsPremium:   false,
			},
			Outfits: []entity.DbOutfit{
				{
					Stage:    entity.StageCasinoUniform,
					ImageURL: "https://images.unsplash.com/photo-1618400954958-b93e73cbacde?q=80&w=300&h=400&auto=format&fit=crop",
					Approved: true,
				},
				{
					Stage:    entity.StageRelaxedAttire,
					ImageURL: "https://images.unsplash.com/photo-1546975554-31053113e977?q=80&w=300&h=400&auto=format&fit=crop",
					Approved: true,
				},
			},
		},
	}
}

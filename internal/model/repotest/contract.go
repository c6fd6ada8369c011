// Package repotest holds the behavioural contract every Repository backend
// must satisfy.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) model.Repository

// Run executes the full contract against the repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("UpdateDealer", func(t *testing.T) { testUpdateDealer(t, newRepo(t)) })
	t.Run("DeleteDealer", func(t *testing.T) { testDeleteDealer(t, newRepo(t)) })
	t.Run("UpsertOutfitReplacesStage", func(t *testing.T) { testUpsertOutfit(t, newRepo(t)) })
	t.Run("UpsertOutfitErrors", func(t *testing.T) { testUpsertOutfitErrors(t, newRepo(t)) })
	t.Run("ApproveOutfit", func(t *testing.T) { testApproveOutfit(t, newRepo(t)) })
	t.Run("ListDealers", func(t *testing.T) { testListDealers(t, newRepo(t)) })
}

func createDealer(t *testing.T, repo model.Repository, name string) *entity.DbDealer {
	t.Helper()
	dealer := &entity.DbDealer{
		Name:        name,
		Personality: "Elegant & Sophisticated",
		Model:       entity.ModelStableDiffusionXL,
		IsActive:    true,
	}
	require.NoError(t, repo.CreateDealer(context.Background(), dealer))
	return dealer
}

func testCreateAndGet(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	dealer := createDealer(t, repo, "Sophia")

	require.NotEmpty(t, dealer.ID)
	assert.Equal(t, dealer.CreatedAt, dealer.UpdatedAt)
	assert.Empty(t, dealer.Outfits)

	got, err := repo.GetDealer(ctx, dealer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sophia", got.Name)
	assert.Equal(t, entity.ModelStableDiffusionXL, got.Model)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsPremium)
	assert.NotNil(t, got.Outfits)
	assert.Empty(t, got.Outfits)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))

	other := createDealer(t, repo, "Isabella")
	assert.NotEqual(t, dealer.ID, other.ID)

	_, err = repo.GetDealer(ctx, "does-not-exist")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func testUpdateDealer(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	dealer := createDealer(t, repo, "Sophia")
	time.Sleep(5 * time.Millisecond)

	premium := true
	name := "Sophia II"
	updated, err := repo.UpdateDealer(ctx, dealer.ID, entity.DealerUpdates{Name: &name, IsPremium: &premium})
	require.NoError(t, err)
	assert.Equal(t, "Sophia II", updated.Name)
	assert.True(t, updated.IsPremium)
	assert.True(t, updated.IsActive, "unrelated fields must be preserved")
	assert.Equal(t, dealer.Personality, updated.Personality)
	assert.True(t, updated.UpdatedAt.After(dealer.UpdatedAt), "updated_at must be refreshed")

	inactive := false
	_, err = repo.UpdateDealer(ctx, "missing", entity.DealerUpdates{IsActive: &inactive})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func testDeleteDealer(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	dealer := createDealer(t, repo, "Sophia")
	_, _, err := repo.UpsertOutfit(ctx, dealer.ID, &entity.DbOutfit{Stage: 1, ImageURL: "https://x/a.png"})
	require.NoError(t, err)

	deleted, err := repo.DeleteDealer(ctx, dealer.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetDealer(ctx, dealer.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	deleted, err = repo.DeleteDealer(ctx, dealer.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete reports absence")
}

func testUpsertOutfit(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	dealer := createDealer(t, repo, "Sophia")

	first, replaced, err := repo.UpsertOutfit(ctx, dealer.ID, &entity.DbOutfit{Stage: 2, ImageURL: "https://x/first.png", StorageKey: "outfits/a/stage2/1.png"})
	require.NoError(t, err)
	assert.Nil(t, replaced, "empty stage replaces nothing")
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Relaxed Attire", first.Name)
	assert.False(t, first.Approved)

	stageOne, _, err := repo.UpsertOutfit(ctx, dealer.ID, &entity.DbOutfit{Stage: 1, ImageURL: "https://x/one.png"})
	require.NoError(t, err)

	_, err = repo.ApproveOutfit(ctx, dealer.ID, first.ID)
	require.NoError(t, err)

	second, replaced, err := repo.UpsertOutfit(ctx, dealer.ID, &entity.DbOutfit{Stage: 2, ImageURL: "https://x/second.png", Approved: true})
	require.NoError(t, err)
	require.NotNil(t, replaced, "replacement reports the outfit it removed")
	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, "outfits/a/stage2/1.png", replaced.StorageKey)
	assert.True(t, replaced.Approved, "replaced outfit is returned as it was stored")
	assert.NotEqual(t, first.ID, second.ID, "replacement gets a fresh id")
	assert.False(t, second.Approved, "new outfits always start unapproved")

	got, err := repo.GetDealer(ctx, dealer.ID)
	require.NoError(t, err)
	require.Len(t, got.Outfits, 2)
	assert.Equal(t, entity.Stage(1), got.Outfits[0].Stage, "outfits ordered by stage")
	assert.Equal(t, stageOne.ID, got.Outfits[0].ID, "other stages untouched")
	assert.Equal(t, "https://x/one.png", got.Outfits[0].ImageURL)
	assert.Equal(t, second.ID, got.Outfits[1].ID)
	assert.Equal(t, "https://x/second.png", got.Outfits[1].ImageURL)
	assert.False(t, got.Outfits[1].Approved)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func testUpsertOutfitErrors(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	dealer := createDealer(t, repo, "Sophia")

	_, _, err := repo.UpsertOutfit(ctx, "missing", &entity.DbOutfit{Stage: 1, ImageURL: "https://x/a.png"})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, _, err = repo.UpsertOutfit(ctx, dealer.ID, &entity.DbOutfit{Stage: 6, ImageURL: "https://x/a.png"})
	assert.ErrorIs(t, err, entity.ErrUnknownStage)

	got, err := repo.GetDealer(ctx, dealer.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Outfits, "failed upserts leave no partial state")
}

func testApproveOutfit(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	dealer := createDealer(t, repo, "Isabella")
	outfit, _, err := repo.UpsertOutfit(ctx, dealer.ID, &entity.DbOutfit{Stage: 3, ImageURL: "https://x/a.png"})
	require.NoError(t, err)

	ok, err := repo.ApproveOutfit(ctx, dealer.ID, outfit.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ApproveOutfit(ctx, dealer.ID, outfit.ID)
	require.NoError(t, err)
	assert.True(t, ok, "approval is idempotent")

	got, err := repo.GetDealer(ctx, dealer.ID)
	require.NoError(t, err)
	require.Len(t, got.Outfits, 1)
	assert.True(t, got.Outfits[0].Approved)

	_, err = repo.ApproveOutfit(ctx, dealer.ID, "missing-outfit")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = repo.ApproveOutfit(ctx, "missing-dealer", outfit.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func testListDealers(t *testing.T, repo model.Repository) {
	ctx := context.Background()
	names := []string{"Ava", "Bella", "Chloe"}
	for _, name := range names {
		createDealer(t, repo, name)
		time.Sleep(2 * time.Millisecond)
	}
	inactive := false
	premium := true
	all, _, err := repo.ListDealers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Chloe", all[0].Name, "newest first")

	_, err = repo.UpdateDealer(ctx, all[0].ID, entity.DealerUpdates{IsActive: &inactive, IsPremium: &premium})
	require.NoError(t, err)

	count, err := repo.CountDealers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, meta, err := repo.ListDealers(ctx, &entity.DealerQuery{BaseParams: entity.BaseParams{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, int64(2), meta.Page)
	require.Len(t, page, 1)
	assert.Equal(t, "Ava", page[0].Name)

	active := true
	filtered, meta, err := repo.ListDealers(ctx, &entity.DealerQuery{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	assert.Len(t, filtered, 2)

	premiumOnly, _, err := repo.ListDealers(ctx, &entity.DealerQuery{IsPremium: &premium})
	require.NoError(t, err)
	require.Len(t, premiumOnly, 1)
	assert.Equal(t, "Chloe", premiumOnly[0].Name)

	byKeyword, _, err := repo.ListDealers(ctx, &entity.DealerQuery{Keyword: "BELL"})
	require.NoError(t, err)
	require.Len(t, byKeyword, 1)
	assert.Equal(t, "Bella", byKeyword[0].Name)
}

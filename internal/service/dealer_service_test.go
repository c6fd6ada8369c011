package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/Louistrash/kaartmodellen/internal/model"
	"github.com/Louistrash/kaartmodellen/internal/model/memory"
	"github.com/Louistrash/kaartmodellen/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu       sync.Mutex
	calls    int32
	requests []entity.GenerationRequest
	fn       func(ctx context.Context, req entity.GenerationRequest) (string, error)
}

func (g *stubGenerator) Generate(ctx context.Context, req entity.GenerationRequest) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.fn(ctx, req)
}

func (g *stubGenerator) lastRequest() entity.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func fixedURL(url string) func(context.Context, entity.GenerationRequest) (string, error) {
	return func(context.Context, entity.GenerationRequest) (string, error) { return url, nil }
}

func testConfig() config.Config {
	return config.Config{GenerationTimeoutSecond: 10, GenerationConcurrency: 2}
}

func newTestService(t *testing.T, gen llm.ImageGenerator) (*DealerService, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	return NewDealerService(repo, gen, nil, testConfig()), repo
}

func createSophia(t *testing.T, svc *DealerService) *entity.DbDealer {
	t.Helper()
	dealer, err := svc.CreateDealer(context.Background(), entity.DealerCreateRequest{
		Name:        "Sophia",
		Personality: "Elegant & Sophisticated",
		Model:       "Stable Diffusion XL",
	})
	require.NoError(t, err)
	return dealer
}

func TestBuildOutfitPrompt(t *testing.T) {
	prompt, err := BuildOutfitPrompt("Elegant & Sophisticated", entity.StageCasinoUniform, "")
	require.NoError(t, err)
	assert.Equal(t, "Elegant & Sophisticated dealer in Casino Uniform outfit, high quality, detailed, professional, casino setting, blackjack table, clear face, good lighting", prompt)

	prompt, err = BuildOutfitPrompt("Playful & Charming", entity.StageCocktailAttire, " red dress ")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(prompt, "good lighting, red dress"))

	_, err = BuildOutfitPrompt("x", entity.Stage(6), "")
	assert.ErrorIs(t, err, entity.ErrUnknownStage)
}

func TestCreateDealerValidation(t *testing.T) {
	svc, _ := newTestService(t, &stubGenerator{fn: fixedURL("https://x/a.png")})
	ctx := context.Background()

	tests := []struct {
		name string
		req  entity.DealerCreateRequest
	}{
		{"缺少名称", entity.DealerCreateRequest{Personality: "p", Model: "DALL·E 3"}},
		{"缺少性格", entity.DealerCreateRequest{Name: "n", Model: "DALL·E 3"}},
		{"缺少模型", entity.DealerCreateRequest{Name: "n", Personality: "p", Model: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDealer(ctx, tt.req)
			assert.ErrorIs(t, err, entity.ErrInvalidRequest)
		})
	}

	inactive := false
	dealer, err := svc.CreateDealer(ctx, entity.DealerCreateRequest{
		Name: " Isabella ", Personality: "Playful & Charming", Model: "getimg-ai", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Isabella", dealer.Name)
	assert.Equal(t, entity.ModelGetImg, dealer.Model, "slug resolves to label")
	assert.False(t, dealer.IsActive)
	assert.False(t, dealer.IsPremium)

	sophia := createSophia(t, svc)
	assert.True(t, sophia.IsActive, "active by default")
}

func TestUpdateDealer(t *testing.T) {
	svc, _ := newTestService(t, &stubGenerator{fn: fixedURL("https://x/a.png")})
	ctx := context.Background()
	dealer := createSophia(t, svc)

	blank := "   "
	_, err := svc.UpdateDealer(ctx, dealer.ID, entity.DealerUpdates{Name: &blank})
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)

	slug := "dall-e-3"
	updated, err := svc.UpdateDealer(ctx, dealer.ID, entity.DealerUpdates{Model: &slug})
	require.NoError(t, err)
	assert.Equal(t, entity.ModelDallE3, updated.Model)

	same, err := svc.UpdateDealer(ctx, dealer.ID, entity.DealerUpdates{})
	require.NoError(t, err)
	assert.Equal(t, updated.Model, same.Model)

	_, err = svc.UpdateDealer(ctx, "missing", entity.DealerUpdates{Model: &slug})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

// Sophia 场景：模型回退到默认服务商，生成第一阶段后审批。
func TestSophiaScenarioThroughDispatcher(t *testing.T) {
	var calls int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/openai", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"url":"https://x/a.png"}]}`))
	}))
	defer provider.Close()

	dispatcher := llm.NewDispatcher(llm.Options{
		OpenAIAPIKey:   "sk-test",
		OpenAIEndpoint: provider.URL + "/openai",
		GetImgEndpoint: provider.URL + "/getimg",
		HTTPClient:     provider.Client(),
	})
	svc, _ := newTestService(t, dispatcher)
	ctx := context.Background()

	var events []entity.GenerationEvent
	svc.SetNotifyFunc(func(event entity.GenerationEvent) { events = append(events, event) })

	sophia := createSophia(t, svc)
	dealer, outfit, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.Len(t, dealer.Outfits, 1)
	assert.Equal(t, entity.StageCasinoUniform, outfit.Stage)
	assert.Equal(t, "Casino Uniform", outfit.Name)
	assert.Equal(t, "https://x/a.png", outfit.ImageURL)
	assert.False(t, outfit.Approved)

	require.Len(t, events, 2)
	assert.Equal(t, entity.GenerationStatusGenerating, events[0].Status)
	assert.Equal(t, entity.GenerationStatusCommitted, events[1].Status)
	assert.Equal(t, outfit.ID, events[1].OutfitID)

	approved, err := svc.ApproveOutfit(ctx, sophia.ID, outfit.ID)
	require.NoError(t, err)
	assert.True(t, approved.Outfits[0].Approved)
}

func TestGenerateStagePromptAndOverrides(t *testing.T) {
	gen := &stubGenerator{fn: fixedURL("https://x/b.png")}
	svc, _ := newTestService(t, gen)
	sophia := createSophia(t, svc)

	_, _, err := svc.GenerateStage(context.Background(), sophia.ID, entity.StageCocktailAttire, entity.GenerateStageRequest{
		Model:       "getimg-ai",
		ExtraPrompt: "gold jewelry",
		APIKey:      "user-key",
	})
	require.NoError(t, err)

	req := gen.lastRequest()
	assert.Equal(t, entity.ModelGetImg, req.Model)
	assert.Equal(t, "user-key", req.APIKey)
	assert.True(t, strings.HasPrefix(req.Prompt, "Elegant & Sophisticated dealer in Cocktail Attire outfit"))
	assert.True(t, strings.HasSuffix(req.Prompt, ", gold jewelry"))
}

func TestGenerateStageValidation(t *testing.T) {
	gen := &stubGenerator{fn: fixedURL("https://x/a.png")}
	svc, _ := newTestService(t, gen)
	sophia := createSophia(t, svc)
	ctx := context.Background()

	_, _, err := svc.GenerateStage(ctx, sophia.ID, entity.Stage(0), entity.GenerateStageRequest{})
	assert.ErrorIs(t, err, entity.ErrUnknownStage)
	_, _, err = svc.GenerateStage(ctx, sophia.ID, entity.Stage(6), entity.GenerateStageRequest{})
	assert.ErrorIs(t, err, entity.ErrUnknownStage)
	_, _, err = svc.GenerateStage(ctx, "missing", entity.StageCasinoUniform, entity.GenerateStageRequest{})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	assert.Zero(t, atomic.LoadInt32(&gen.calls))
}

func TestGenerateStageFailureKeepsPreviousOutfit(t *testing.T) {
	providerErr := &llm.ProviderHTTPError{Provider: llm.ProviderOpenAI, StatusCode: http.StatusTooManyRequests, Body: "rate limited"}
	fail := false
	gen := &stubGenerator{fn: func(context.Context, entity.GenerationRequest) (string, error) {
		if fail {
			return "", providerErr
		}
		return "https://x/first.png", nil
	}}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()
	sophia := createSophia(t, svc)

	_, first, err := svc.GenerateStage(ctx, sophia.ID, entity.StageRelaxedAttire, entity.GenerateStageRequest{})
	require.NoError(t, err)

	var events []entity.GenerationEvent
	svc.SetNotifyFunc(func(event entity.GenerationEvent) { events = append(events, event) })

	fail = true
	_, _, err = svc.GenerateStage(ctx, sophia.ID, entity.StageRelaxedAttire, entity.GenerateStageRequest{})
	var httpErr *llm.ProviderHTTPError
	require.True(t, errors.As(err, &httpErr), "provider error is returned unchanged")
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)

	_, _, err = svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	require.Error(t, err)

	dealer, err := svc.GetDealer(ctx, sophia.ID)
	require.NoError(t, err)
	require.Len(t, dealer.Outfits, 1, "failed generations persist nothing")
	assert.Equal(t, first.ID, dealer.Outfits[0].ID)
	assert.Equal(t, "https://x/first.png", dealer.Outfits[0].ImageURL)

	require.Len(t, events, 4)
	assert.Equal(t, entity.GenerationStatusFailed, events[1].Status)
	assert.Contains(t, events[1].Error, "rate limited")
}

func TestGenerateStageReplacesOutfit(t *testing.T) {
	var n int32
	gen := &stubGenerator{fn: func(context.Context, entity.GenerationRequest) (string, error) {
		if atomic.AddInt32(&n, 1) == 1 {
			return "https://x/one.png", nil
		}
		return "https://x/two.png", nil
	}}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()
	sophia := createSophia(t, svc)

	_, first, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasualFormal, entity.GenerateStageRequest{})
	require.NoError(t, err)
	_, err = svc.ApproveOutfit(ctx, sophia.ID, first.ID)
	require.NoError(t, err)

	dealer, second, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasualFormal, entity.GenerateStageRequest{})
	require.NoError(t, err)
	require.Len(t, dealer.Outfits, 1)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "https://x/two.png", dealer.Outfits[0].ImageURL)
	assert.False(t, dealer.Outfits[0].Approved, "replacement resets approval")
}

func TestConcurrentSameStageGeneration(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gen := &stubGenerator{fn: func(_ context.Context, req entity.GenerationRequest) (string, error) {
		if strings.Contains(req.Prompt, "Casino Uniform") {
			once.Do(func() { close(started) })
			<-release
		}
		return "https://x/a.png", nil
	}}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()
	sophia := createSophia(t, svc)

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first generation did not start")
	}

	_, _, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	assert.ErrorIs(t, err, entity.ErrGenerationInProgress)

	_, _, err = svc.GenerateStage(ctx, sophia.ID, entity.StageRelaxedAttire, entity.GenerateStageRequest{})
	assert.NoError(t, err, "other stages are not blocked")

	close(release)
	require.NoError(t, <-done)

	dealer, err := svc.GetDealer(ctx, sophia.ID)
	require.NoError(t, err)
	assert.Len(t, dealer.Outfits, 2)

	_, _, err = svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	assert.NoError(t, err, "guard is released after completion")
}

func TestGenerateMissingStages(t *testing.T) {
	gen := &stubGenerator{fn: func(_ context.Context, req entity.GenerationRequest) (string, error) {
		if strings.Contains(req.Prompt, "Cocktail Attire") {
			return "", &llm.ProviderResponseError{Provider: llm.ProviderOpenAI, Reason: "missing url", Payload: "{}"}
		}
		return "https://x/batch.png", nil
	}}
	svc, _ := newTestService(t, gen)
	ctx := context.Background()
	sophia := createSophia(t, svc)

	_, _, err := svc.GenerateStage(ctx, sophia.ID, entity.StageRelaxedAttire, entity.GenerateStageRequest{})
	require.NoError(t, err)

	result, err := svc.GenerateMissingStages(ctx, sophia.ID, entity.GenerateStageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []entity.Stage{1, 3, 5}, result.Generated)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[entity.StageCocktailAttire], "missing url")
	require.Len(t, result.Dealer.Outfits, 4)
	assert.Equal(t, []entity.Stage{entity.StageCocktailAttire}, result.Dealer.MissingStages())
	assert.Equal(t, int32(5), atomic.LoadInt32(&gen.calls))
}

func TestSetFlags(t *testing.T) {
	svc, _ := newTestService(t, &stubGenerator{fn: fixedURL("https://x/a.png")})
	ctx := context.Background()
	sophia := createSophia(t, svc)

	dealer, change, err := svc.SetPremium(ctx, sophia.ID, true)
	require.NoError(t, err)
	assert.True(t, dealer.IsPremium)
	assert.Equal(t, FlagChange{Flag: FlagPremium, Previous: false, Requested: true}, change)

	dealer, change, err = svc.SetActive(ctx, sophia.ID, false)
	require.NoError(t, err)
	assert.False(t, dealer.IsActive)
	assert.True(t, change.Previous)

	_, change, err = svc.SetActive(ctx, "missing", true)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.False(t, change.Revert(), "failed toggle reverts to the opposite value")
}

func TestGenerateStageMirrorsImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer images.Close()

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ImageMirrorEnabled = true
	cfg.StoragePublicBaseURL = "http://localhost:8080/files"

	gen := &stubGenerator{fn: fixedURL(images.URL + "/temp.png")}
	repo := memory.NewRepository()
	svc := NewDealerService(repo, gen, store, cfg)
	svc.SetHTTPClient(images.Client())
	ctx := context.Background()
	sophia := createSophia(t, svc)

	_, first, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ImageURL, "http://localhost:8080/files/outfits/"+sophia.ID+"/stage1/"))
	assert.True(t, strings.HasSuffix(first.ImageURL, ".png"))
	require.NotEmpty(t, first.StorageKey)
	firstPath := filepath.Join(dir, filepath.FromSlash(first.StorageKey))
	data, err := os.ReadFile(firstPath)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	_, second, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	require.NoError(t, err)
	_, err = os.Stat(firstPath)
	assert.True(t, os.IsNotExist(err), "replaced mirror is removed")

	deleted, err := svc.DeleteDealer(ctx, sophia.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(second.StorageKey)))
	assert.True(t, os.IsNotExist(err), "deleting a dealer removes its mirrors")
	assert.Empty(t, mirroredFiles(t, dir))
}

// staleReadRepo 让下一次 GetDealer 返回事先保存的快照，模拟在前一个请求提交之前就读取了 dealer 的请求。
type staleReadRepo struct {
	model.Repository
	mu    sync.Mutex
	stale *entity.DbDealer
}

func (r *staleReadRepo) serveStale(d *entity.DbDealer) {
	r.mu.Lock()
	r.stale = d
	r.mu.Unlock()
}

func (r *staleReadRepo) GetDealer(ctx context.Context, id string) (*entity.DbDealer, error) {
	r.mu.Lock()
	stale := r.stale
	r.stale = nil
	r.mu.Unlock()
	if stale != nil && stale.ID == id {
		return stale.Clone(), nil
	}
	return r.Repository.GetDealer(ctx, id)
}

func mirroredFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestGenerateStageDeletesMirrorOfOutfitActuallyReplaced(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}))
	defer images.Close()

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.ImageMirrorEnabled = true
	cfg.StoragePublicBaseURL = "http://localhost:8080/files"

	base := memory.NewRepository()
	repo := &staleReadRepo{Repository: base}
	svc := NewDealerService(repo, &stubGenerator{fn: fixedURL(images.URL + "/temp.png")}, store, cfg)
	svc.SetHTTPClient(images.Client())
	ctx := context.Background()
	sophia := createSophia(t, svc)

	// 第二个请求读到的是第一个请求提交之前的 dealer
	before, err := base.GetDealer(ctx, sophia.ID)
	require.NoError(t, err)

	_, first, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	require.NoError(t, err)
	repo.serveStale(before)
	_, second, err := svc.GenerateStage(ctx, sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	require.NoError(t, err)
	require.NotEqual(t, first.StorageKey, second.StorageKey)

	assert.Equal(t, []string{second.StorageKey}, mirroredFiles(t, dir), "only the committed outfit's mirror remains")
	dealer, err := base.GetDealer(ctx, sophia.ID)
	require.NoError(t, err)
	require.Len(t, dealer.Outfits, 1)
	assert.Equal(t, second.ID, dealer.Outfits[0].ID)
}

func TestGenerateStageMirrorRequiresAbsolutePublicURL(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	defer images.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	cfg := testConfig()
	cfg.ImageMirrorEnabled = true
	cfg.StoragePublicBaseURL = "/files"

	svc := NewDealerService(memory.NewRepository(), &stubGenerator{fn: fixedURL(images.URL + "/a.png")}, store, cfg)
	svc.SetHTTPClient(images.Client())
	sophia := createSophia(t, svc)

	_, _, err = svc.GenerateStage(context.Background(), sophia.ID, entity.StageCasinoUniform, entity.GenerateStageRequest{})
	assert.ErrorIs(t, err, entity.ErrConfiguration)

	dealer, err := svc.GetDealer(context.Background(), sophia.ID)
	require.NoError(t, err)
	assert.Empty(t, dealer.Outfits)
}

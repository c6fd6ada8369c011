package entity

import (
	"testing"
	"time"
)

func TestDealerUpdatesToMap(t *testing.T) {
	name := "Sophia"
	active := false

	updates := DealerUpdates{Name: &name, IsActive: &active}
	m := updates.ToMap()

	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(m), m)
	}
	if m["name"] != "Sophia" {
		t.Errorf("name = %v", m["name"])
	}
	if m["is_active"] != false {
		t.Errorf("is_active = %v", m["is_active"])
	}
	if updates.IsEmpty() {
		t.Error("expected non-empty updates")
	}
	if !(DealerUpdates{}).IsEmpty() {
		t.Error("expected zero updates to be empty")
	}
}

func TestDealerUpdatesApply(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	dealer := &DbDealer{Name: "Isabella", Model: ModelDallE3, IsActive: true, CreatedAt: created, UpdatedAt: created}

	premium := true
	DealerUpdates{IsPremium: &premium}.Apply(dealer, now)

	if !dealer.IsPremium {
		t.Error("expected premium to be applied")
	}
	if dealer.Name != "Isabella" || dealer.Model != ModelDallE3 || !dealer.IsActive {
		t.Errorf("unrelated fields changed: %+v", dealer)
	}
	if !dealer.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v, want %v", dealer.UpdatedAt, now)
	}
	if !dealer.CreatedAt.Equal(created) {
		t.Error("created_at must not change")
	}
}

func TestNormalizeModel(t *testing.T) {
	tests := map[string]string{
		"getimg-ai":           ModelGetImg,
		"GetImg.ai":           ModelGetImg,
		"dall-e-3":            ModelDallE3,
		" Stable-Diffusion-XL": ModelStableDiffusionXL,
		"my-custom-model":     "my-custom-model",
		"":                    "",
	}
	for input, want := range tests {
		if got := NormalizeModel(input); got != want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	if len(catalog.Stages) != 5 {
		t.Errorf("expected 5 stages, got %d", len(catalog.Stages))
	}
	if len(catalog.Models) != 4 {
		t.Errorf("expected 4 models, got %d", len(catalog.Models))
	}
	if len(catalog.Personalities) != 6 {
		t.Errorf("expected 6 personalities, got %d", len(catalog.Personalities))
	}

	catalog.Models[0].Label = "mutated"
	if ModelOptions()[0].Label != ModelDallE3 {
		t.Error("catalog must return copies")
	}
}

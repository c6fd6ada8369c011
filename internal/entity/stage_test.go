package entity

import (
	"errors"
	"testing"
)

func TestStageName(t *testing.T) {
	tests := []struct {
		stage   Stage
		want    string
		wantErr bool
	}{
		{stage: 1, want: "Casino Uniform"},
		{stage: 2, want: "Relaxed Attire"},
		{stage: 3, want: "Casual/Formal"},
		{stage: 4, want: "Cocktail Attire"},
		{stage: 5, want: "Swimsuit/Lingerie"},
		{stage: 0, wantErr: true},
		{stage: 6, wantErr: true},
		{stage: -1, wantErr: true},
	}

	for _, tt := range tests {
		got, err := StageName(tt.stage)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownStage) {
				t.Errorf("StageName(%d) error = %v, want ErrUnknownStage", tt.stage, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("StageName(%d) unexpected error: %v", tt.stage, err)
		}
		if got != tt.want {
			t.Errorf("StageName(%d) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStagesAscending(t *testing.T) {
	stages := Stages()
	if len(stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(stages))
	}
	for i, info := range stages {
		if info.Stage != Stage(i+1) {
			t.Errorf("stages[%d] = %d, want %d", i, info.Stage, i+1)
		}
		name, err := StageName(info.Stage)
		if err != nil || name != info.Name {
			t.Errorf("stages[%d] name %q does not match registry (%q, %v)", i, info.Name, name, err)
		}
	}
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Stage
		wantErr bool
	}{
		{name: "valid", raw: "3", want: StageCasualFormal},
		{name: "空白", raw: " 5 ", want: StageSwimsuitLingerie},
		{name: "zero", raw: "0", wantErr: true},
		{name: "out of range", raw: "6", wantErr: true},
		{name: "not a number", raw: "uniform", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStage(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStage) {
					t.Fatalf("expected ErrUnknownStage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMissingStagesAndSort(t *testing.T) {
	dealer := &DbDealer{Outfits: []DbOutfit{
		{ID: "c", Stage: StageCocktailAttire},
		{ID: "a", Stage: StageCasinoUniform},
	}}

	missing := dealer.MissingStages()
	want := []Stage{StageRelaxedAttire, StageCasualFormal, StageSwimsuitLingerie}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %d, want %d", i, missing[i], want[i])
		}
	}

	dealer.SortOutfits()
	if dealer.Outfits[0].ID != "a" || dealer.Outfits[1].ID != "c" {
		t.Errorf("outfits not sorted by stage: %+v", dealer.Outfits)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := &DbDealer{ID: "d1", Outfits: []DbOutfit{{ID: "o1", Stage: 1}}}
	clone := original.Clone()
	clone.Outfits[0].Approved = true
	clone.Name = "changed"

	if original.Outfits[0].Approved {
		t.Error("mutating clone outfits leaked into original")
	}
	if original.Name != "" {
		t.Error("mutating clone name leaked into original")
	}
}

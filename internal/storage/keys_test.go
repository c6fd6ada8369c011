package storage

import (
	"testing"
	"time"
)

func TestOutfitKey(t *testing.T) {
	now := time.Unix(0, 1700000000123456789)
	tests := []struct {
		name    string
		obj     OutfitObject
		want    string
		wantErr bool
	}{
		{"png", OutfitObject{DealerID: "d-1", Stage: 2, Extension: "png"}, "outfits/d-1/stage2/1700000000123456789.png", false},
		{"点号和大写扩展名", OutfitObject{DealerID: "d-1", Stage: 5, Extension: ".JPEG"}, "outfits/d-1/stage5/1700000000123456789.jpeg", false},
		{"空扩展名", OutfitObject{DealerID: "d-1", Stage: 1}, "outfits/d-1/stage1/1700000000123456789.bin", false},
		{"id 中的路径字符被剔除", OutfitObject{DealerID: "../d/1", Stage: 1, Extension: "png"}, "outfits/d1/stage1/1700000000123456789.png", false},
		{"空 dealer", OutfitObject{DealerID: " / ", Stage: 1}, "", true},
		{"非法阶段", OutfitObject{DealerID: "d-1", Stage: 0}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outfitKey(tt.obj, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("outfitKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("outfitKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDealerPrefix(t *testing.T) {
	got, err := DealerPrefix("3f2b-Aa_9")
	if err != nil {
		t.Fatalf("DealerPrefix: %v", err)
	}
	if got != "outfits/3f2b-Aa_9/" {
		t.Errorf("DealerPrefix = %q", got)
	}
	if _, err := DealerPrefix(""); err == nil {
		t.Error("expected error for empty dealer id")
	}
}

func TestJoinPrefix(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "/outfits/d/stage1/1.png", "outfits/d/stage1/1.png"},
		{"/media/", "outfits/d/stage1/1.png", "media/outfits/d/stage1/1.png"},
		{"  ", "a.png", "a.png"},
		{"media", "outfits/d/", "media/outfits/d/"},
		{"a/b/", "/outfits/d/", "a/b/outfits/d/"},
	}
	for _, tt := range tests {
		if got := joinPrefix(tt.prefix, tt.key); got != tt.want {
			t.Errorf("joinPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestCleanKey(t *testing.T) {
	if got, err := cleanKey("  /media/outfits/d/stage1/1.png "); err != nil || got != "media/outfits/d/stage1/1.png" {
		t.Errorf("cleanKey = %q, %v", got, err)
	}
	if _, err := cleanKey(" / "); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := contentTypeFor("outfits/d/stage1/1.png"); got != "image/png" {
		t.Errorf("png content type = %q", got)
	}
	if got := contentTypeFor("outfits/d/stage1/1.bin"); got != "application/octet-stream" {
		t.Errorf("bin content type = %q", got)
	}
}

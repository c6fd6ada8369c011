package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DbDealer 持久化的 dealer 角色
type DbDealer struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	Name        string     `gorm:"column:name;type:varchar(255);not null" json:"name" bson:"name"`
	Personality string     `gorm:"column:personality;type:varchar(255)" json:"personality" bson:"personality"`
	Model       string     `gorm:"column:model;type:varchar(100)" json:"model" bson:"model"`
	IsActive    bool       `gorm:"column:is_active;index;not null" json:"is_active" bson:"is_active"`
	IsPremium   bool       `gorm:"column:is_premium;index;not null" json:"is_premium" bson:"is_premium"`
	Outfits     []DbOutfit `gorm:"foreignKey:DealerID;references:ID" json:"outfits" bson:"outfits"`
}

// TableName overrides default table name.
func (DbDealer) TableName() string {
	return "dealers"
}

// DbOutfit 某个阶段生成的图片，每个 dealer 每个阶段最多一条
type DbOutfit struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"id"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	DealerID   string    `gorm:"column:dealer_id;type:varchar(36);not null;uniqueIndex:idx_outfit_dealer_stage" json:"dealer_id" bson:"-"`
	Stage      Stage     `gorm:"column:stage;not null;uniqueIndex:idx_outfit_dealer_stage" json:"stage" bson:"stage"`
	Name       string    `gorm:"column:name;type:varchar(100)" json:"name" bson:"name"`
	ImageURL   string    `gorm:"column:image_url;type:text;not null" json:"image_url" bson:"image_url"`
	Approved   bool      `gorm:"column:approved;not null" json:"approved" bson:"approved"`
	StorageKey string    `gorm:"column:storage_key;type:varchar(512)" json:"-" bson:"storage_key,omitempty"`
}

// TableName overrides default table name.
func (DbOutfit) TableName() string {
	return "dealer_outfits"
}

// OutfitForStage 返回指定阶段的 outfit
func (d *DbDealer) OutfitForStage(stage Stage) (*DbOutfit, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Outfits {
		if d.Outfits[i].Stage == stage {
			return &d.Outfits[i], true
		}
	}
	return nil, false
}

// MissingStages 按升序列出还没有 outfit 的阶段
func (d *DbDealer) MissingStages() []Stage {
	var missing []Stage
	for _, info := range Stages() {
		if _, ok := d.OutfitForStage(info.Stage); !ok {
			missing = append(missing, info.Stage)
		}
	}
	return missing
}

// SortOutfits 按阶段升序排列 outfits
func (d *DbDealer) SortOutfits() {
	if d == nil {
		return
	}
	sort.SliceStable(d.Outfits, func(i, j int) bool {
		return d.Outfits[i].Stage < d.Outfits[j].Stage
	})
}

// Clone 深拷贝 dealer，包括 outfits。
func (d *DbDealer) Clone() *DbDealer {
	if d == nil {
		return nil
	}
	out := *d
	if d.Outfits != nil {
		out.Outfits = make([]DbOutfit, len(d.Outfits))
		copy(out.Outfits, d.Outfits)
	}
	return &out
}

// PrepareDealer 重置新 dealer 中由服务端维护的字段
func PrepareDealer(d *DbDealer, id string, now time.Time) {
	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Outfits = []DbOutfit{}
}

// PrepareOutfit 校验新 outfit 并填充服务端字段。未指定名称时使用阶段名，
// approved 总是从 false 开始。
func PrepareOutfit(dealerID string, in DbOutfit, id string, now time.Time) (DbOutfit, error) {
	stageName, err := StageName(in.Stage)
	if err != nil {
		return DbOutfit{}, err
	}
	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		return DbOutfit{}, fmt.Errorf("%w: image url is required", ErrInvalidRequest)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = stageName
	}
	return DbOutfit{
		ID:         id,
		CreatedAt:  now,
		DealerID:   dealerID,
		Stage:      in.Stage,
		Name:       name,
		ImageURL:   imageURL,
		Approved:   false,
		StorageKey: in.StorageKey,
	}, nil
}

package entity

import "time"

// DealerUpdates dealer 部分更新字段
type DealerUpdates struct {
	Name        *string
	Personality *string
	Model       *string
	IsActive    *bool
	IsPremium   *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u DealerUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Personality != nil {
		updates["personality"] = *u.Personality
	}
	if u.Model != nil {
		updates["model"] = *u.Model
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.IsPremium != nil {
		updates["is_premium"] = *u.IsPremium
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u DealerUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// Apply 将更新合并到内存中的 dealer 并刷新 UpdatedAt。
func (u DealerUpdates) Apply(d *DbDealer, now time.Time) {
	if d == nil {
		return
	}
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Personality != nil {
		d.Personality = *u.Personality
	}
	if u.Model != nil {
		d.Model = *u.Model
	}
	if u.IsActive != nil {
		d.IsActive = *u.IsActive
	}
	if u.IsPremium != nil {
		d.IsPremium = *u.IsPremium
	}
	d.UpdatedAt = now
}

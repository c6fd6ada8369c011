package entity

import "strings"

// DealerQuery dealer 列表的分页与筛选参数
type DealerQuery struct {
	BaseParams
	IsActive  *bool  `json:"active" form:"active" query:"active"`
	IsPremium *bool  `json:"premium" form:"premium" query:"premium"`
	Keyword   string `json:"keyword" form:"keyword" query:"keyword"`
}

// Matches 在内存中对 dealer 应用筛选条件
func (q *DealerQuery) Matches(d *DbDealer) bool {
	if q == nil || d == nil {
		return d != nil
	}
	if q.IsActive != nil && d.IsActive != *q.IsActive {
		return false
	}
	if q.IsPremium != nil && d.IsPremium != *q.IsPremium {
		return false
	}
	if kw := strings.ToLower(strings.TrimSpace(q.Keyword)); kw != "" {
		if !strings.Contains(strings.ToLower(d.Name), kw) && !strings.Contains(strings.ToLower(d.Personality), kw) {
			return false
		}
	}
	return true
}

// DealerCreateRequest 创建 dealer 的请求体
type DealerCreateRequest struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Model       string `json:"model"`
	IsActive    *bool  `json:"is_active,omitempty"`
	IsPremium   *bool  `json:"is_premium,omitempty"`
}

// DealerUpdateRequest 局部更新 dealer 的请求体
type DealerUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Personality *string `json:"personality,omitempty"`
	Model       *string `json:"model,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsPremium   *bool   `json:"is_premium,omitempty"`
}

// ToUpdates 转换为仓库层的更新字段
func (r DealerUpdateRequest) ToUpdates() DealerUpdates {
	return DealerUpdates{
		Name:        r.Name,
		Personality: r.Personality,
		Model:       r.Model,
		IsActive:    r.IsActive,
		IsPremium:   r.IsPremium,
	}
}

// GenerateStageRequest 触发单个阶段生成的可选参数
type GenerateStageRequest struct {
	Model             string `json:"model,omitempty"`
	ExtraPrompt       string `json:"extra_prompt,omitempty"`
	APIKey            string `json:"api_key,omitempty"`
	ReferenceImageURL string `json:"reference_image_url,omitempty"`
}

// FlagRequest 设置 dealer 布尔标记
type FlagRequest struct {
	Value *bool `json:"value"`
}

// GenerateImageRequest 独立生成接口的请求体
type GenerateImageRequest struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	APIKey            string `json:"apiKey,omitempty"`
	ReferenceImageURL string `json:"referenceImageUrl,omitempty"`
}

// GenerateImageResponse 独立生成接口的响应
type GenerateImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// BatchGenerationResult 批量生成的结果，Failures 按阶段记录错误信息。
type BatchGenerationResult struct {
	Dealer    *DbDealer        `json:"dealer"`
	Generated []Stage          `json:"generated"`
	Failures  map[Stage]string `json:"failures,omitempty"`
}

// DealerListResponse 列表接口响应
type DealerListResponse struct {
	Dealers []DbDealer `json:"dealers"`
	Meta    *Meta      `json:"meta"`
}

// DealerDetailResponse 单个 dealer 的响应
type DealerDetailResponse struct {
	Dealer *DbDealer `json:"dealer"`
}

// GenerateStageResponse 阶段生成提交后的响应
type GenerateStageResponse struct {
	Dealer *DbDealer `json:"dealer"`
	Outfit *DbOutfit `json:"outfit"`
}

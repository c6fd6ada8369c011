package entity

import "time"

// GenerationRequest 单次生成调用的输入，不落库
type GenerationRequest struct {
	Prompt            string
	Model             string
	ReferenceImageURL string
	// APIKey 非空时覆盖配置中的服务商密钥
	APIKey string
}

// 生成事件状态
const (
	GenerationStatusGenerating = "generating"
	GenerationStatusCommitted  = "committed"
	GenerationStatusFailed     = "failed"
)

// GenerationEvent 描述阶段生成的一次状态变化
type GenerationEvent struct {
	DealerID string    `json:"dealer_id"`
	Stage    Stage     `json:"stage"`
	Status   string    `json:"status"`
	OutfitID string    `json:"outfit_id,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

package entity

import "strings"

// 创建 dealer 时可选的模型名称。dealer 上保存的始终是显示名称，
// 只有 ModelGetImg 会路由到 getimg.ai。
const (
	ModelDallE3            = "DALL·E 3"
	ModelStableDiffusionXL = "Stable Diffusion XL"
	ModelMidjourney        = "Midjourney"
	ModelGetImg            = "GetImg.ai"
)

// ModelOption 模型选项（slug + 显示名称）
type ModelOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var modelOptions = []ModelOption{
	{ID: "dall-e-3", Label: ModelDallE3},
	{ID: "stable-diffusion-xl", Label: ModelStableDiffusionXL},
	{ID: "midjourney", Label: ModelMidjourney},
	{ID: "getimg-ai", Label: ModelGetImg},
}

var personalityOptions = []string{
	"Elegant & Sophisticated",
	"Playful & Flirty",
	"Professional & Focused",
	"Mysterious & Alluring",
	"Friendly & Approachable",
	"Bold & Confident",
}

// ModelOptions 按展示顺序返回模型列表
func ModelOptions() []ModelOption {
	return append([]ModelOption(nil), modelOptions...)
}

// PersonalityOptions 返回标准性格标签
func PersonalityOptions() []string {
	return append([]string(nil), personalityOptions...)
}

// NormalizeModel 把目录中的 slug 映射为显示名称，
// 显示名称和未知值只去掉首尾空白。
func NormalizeModel(value string) string {
	trimmed := strings.TrimSpace(value)
	for _, opt := range modelOptions {
		if strings.EqualFold(trimmed, opt.ID) {
			return opt.Label
		}
	}
	return trimmed
}

// Catalog 前端表单所需的静态选项
type Catalog struct {
	Stages        []StageInfo   `json:"stages"`
	Models        []ModelOption `json:"models"`
	Personalities []string      `json:"personalities"`
}

// DefaultCatalog 组装阶段表和各类选项
func DefaultCatalog() Catalog {
	return Catalog{
		Stages:        Stages(),
		Models:        ModelOptions(),
		Personalities: PersonalityOptions(),
	}
}

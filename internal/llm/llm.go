package llm

import (
	"context"

	"github.com/Louistrash/kaartmodellen/internal/entity"
)

// ImageGenerator produces one image URL per request.
type ImageGenerator interface {
	Generate(ctx context.Context, req entity.GenerationRequest) (string, error)
}

// Provider identifies an external image-generation backend.
type Provider string

const (
	// ProviderOpenAI is the default backend (OpenAI image generations).
	ProviderOpenAI Provider = "openai"
	// ProviderGetImg is selected only by the exact GetImg.ai model label.
	ProviderGetImg Provider = "getimg"
)

// ResolveProvider normalises a model identifier to a backend. Only the exact
// label "GetImg.ai" selects getimg; every other identifier, including empty or
// unknown ones, falls back to OpenAI.
func ResolveProvider(model string) Provider {
	if model == entity.ModelGetImg {
		return ProviderGetImg
	}
	return ProviderOpenAI
}

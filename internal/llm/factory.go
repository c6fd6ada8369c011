package llm

import (
	"net/http"
	"strings"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/config"
)

const (
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/images/generations"
	DefaultGetImgEndpoint = "https://api.getimg.ai/v1/generation/text-to-image"
)

// Options configures the dispatcher backends.
type Options struct {
	OpenAIAPIKey   string
	OpenAIEndpoint string
	GetImgAPIKey   string
	GetImgEndpoint string
	Timeout        time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// OptionsFromConfig maps process configuration onto dispatcher options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIEndpoint: cfg.OpenAIImageEndpoint,
		GetImgAPIKey:   cfg.GetImgAPIKey,
		GetImgEndpoint: cfg.GetImgEndpoint,
		Timeout:        cfg.ProviderTimeout(),
	}
}

// NewDispatcher builds a Dispatcher with one backend per provider.
func NewDispatcher(opts Options) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Dispatcher{
		client: client,
		backends: map[Provider]backend{
			ProviderOpenAI: {
				provider:  ProviderOpenAI,
				endpoint:  firstNonEmpty(opts.OpenAIEndpoint, DefaultOpenAIEndpoint),
				apiKey:    strings.TrimSpace(opts.OpenAIAPIKey),
				envName:   "OPENAI_API_KEY",
				buildBody: buildOpenAIBody,
				parseURL:  parseOpenAIImageURL,
			},
			ProviderGetImg: {
				provider:  ProviderGetImg,
				endpoint:  firstNonEmpty(opts.GetImgEndpoint, DefaultGetImgEndpoint),
				apiKey:    strings.TrimSpace(opts.GetImgAPIKey),
				envName:   "GETIMG_API_KEY",
				buildBody: buildGetImgBody,
				parseURL:  parseGetImgImageURL,
			},
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/utils"
	"github.com/sirupsen/logrus"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 4 << 20

type backend struct {
	provider  Provider
	endpoint  string
	apiKey    string
	envName   string
	buildBody func(prompt string) ([]byte, error)
	parseURL  func(payload []byte) (string, error)
}

// Dispatcher sends a generation request to exactly one provider and
// normalises its answer to an absolute image URL. It is stateless and safe for
// concurrent use; there are no retries.
type Dispatcher struct {
	client   *http.Client
	backends map[Provider]backend
}

var _ ImageGenerator = (*Dispatcher)(nil)

// Generate performs a single provider call and returns the image URL.
func (d *Dispatcher) Generate(ctx context.Context, req entity.GenerationRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", entity.ErrInvalidRequest)
	}

	provider := ResolveProvider(req.Model)
	be, ok := d.backends[provider]
	if !ok {
		return "", fmt.Errorf("%w: provider %s not configured", entity.ErrConfiguration, provider)
	}

	logger := providerLogger(ctx, provider, req.Model)
	if provider == ProviderOpenAI && req.Model != entity.ModelDallE3 {
		logger.WithField("requested_model", req.Model).Info("model_fallback_to_default_provider")
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = be.apiKey
	}
	if apiKey == "" {
		return "", fmt.Errorf("%w: %s is not configured", entity.ErrConfiguration, be.envName)
	}

	body, err := be.buildBody(prompt)
	if err != nil {
		return "", fmt.Errorf("%s marshal request: %w", provider, err)
	}

	fields := logrus.Fields{"prompt": logSnippet(prompt)}
	if ref := strings.TrimSpace(req.ReferenceImageURL); ref != "" {
		fields["reference_image_url"] = ref
	}
	logger.WithFields(fields).Info("image_generation_start")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, be.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s create request: %w", provider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		logger.WithError(err).Error("image_generation_request_failed")
		return "", fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%s read response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(string(payload)),
		}).Error("image_generation_http_error")
		return "", &ProviderHTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	imageURL, err := be.parseURL(payload)
	if err != nil {
		logger.WithError(err).WithField("body", logSnippet(string(payload))).Error("image_generation_bad_response")
		return "", err
	}

	if !utils.IsAbsoluteURL(imageURL) {
		logger.WithField("image_url", logSnippet(imageURL)).Error("image_generation_invalid_url")
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidImageURL, logSnippet(imageURL))
	}

	logger.WithField("image_url", imageURL).Info("image_generation_success")
	return imageURL, nil
}

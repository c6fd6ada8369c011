package llm

import (
	"context"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/utils"
	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 120

// providerLogger returns an entry tagged with provider and model fields.
func providerLogger(ctx context.Context, provider Provider, model string) *logrus.Entry {
	fields := logrus.Fields{
		"provider": string(provider),
	}
	if trimmedModel := strings.TrimSpace(model); trimmedModel != "" {
		fields["model"] = trimmedModel
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logSnippet(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	// data: URLs only keep the media type prefix
	if strings.HasPrefix(value, "data:") {
		if idx := strings.Index(value, ","); idx > 0 {
			return value[:idx] + ",<omitted>"
		}
	}

	return utils.Truncate(value, logSnippetLimit)
}

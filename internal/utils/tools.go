package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

func GenerateUUID() string {
	return uuid.NewString()
}

// IsAbsoluteURL reports whether value parses as a URL with both scheme and host.
// data: URLs and relative paths are rejected.
func IsAbsoluteURL(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// JoinPublicURL appends an object key to a public base URL.
func JoinPublicURL(base, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if base == "" {
		return key
	}
	if key == "" {
		return base
	}
	return fmt.Sprintf("%s/%s", base, key)
}

// Truncate shortens value to at most limit runes, appending "..." when cut.
func Truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

package llm

import "fmt"

// ProviderHTTPError is returned when a provider answers with a non-2xx status.
type ProviderHTTPError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *ProviderHTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ProviderResponseError is returned when a 2xx payload cannot be decoded or
// lacks the image URL. Payload holds the raw response body.
type ProviderResponseError struct {
	Provider Provider
	Reason   string
	Payload  string
}

func (e *ProviderResponseError) Error() string {
	return fmt.Sprintf("%s response: %s", e.Provider, e.Reason)
}

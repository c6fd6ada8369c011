package llm

import (
	"encoding/json"
	"strings"
)

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

func buildOpenAIBody(prompt string) ([]byte, error) {
	return json.Marshal(openAIImageRequest{
		Model:          "dall-e-3",
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		Quality:        "standard",
		ResponseFormat: "url",
	})
}

func parseOpenAIImageURL(payload []byte) (string, error) {
	var resp openAIImageResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", &ProviderResponseError{Provider: ProviderOpenAI, Reason: "decode: " + err.Error(), Payload: string(payload)}
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return "", &ProviderResponseError{Provider: ProviderOpenAI, Reason: "missing data[0].url", Payload: string(payload)}
	}
	return strings.TrimSpace(resp.Data[0].URL), nil
}

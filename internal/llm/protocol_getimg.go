package llm

import (
	"encoding/json"
	"strings"
)

const getImgNegativePrompt = "ugly, deformed, disfigured, poor quality, low quality"

type getImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	Guidance       float64 `json:"guidance"`
	ModelName      string  `json:"model_name"`
	Scheduler      string  `json:"scheduler"`
}

type getImgResponse struct {
	OutputURL string `json:"output_url"`
	Seed      int64  `json:"seed,omitempty"`
}

func buildGetImgBody(prompt string) ([]byte, error) {
	return json.Marshal(getImgRequest{
		Prompt:         prompt,
		NegativePrompt: getImgNegativePrompt,
		Width:          512,
		Height:         768,
		Steps:          30,
		Guidance:       7.5,
		ModelName:      "realistic-vision-v5.1",
		Scheduler:      "dpmsolver++",
	})
}

func parseGetImgImageURL(payload []byte) (string, error) {
	var resp getImgResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", &ProviderResponseError{Provider: ProviderGetImg, Reason: "decode: " + err.Error(), Payload: string(payload)}
	}
	if strings.TrimSpace(resp.OutputURL) == "" {
		return "", &ProviderResponseError{Provider: ProviderGetImg, Reason: "missing output_url", Payload: string(payload)}
	}
	return strings.TrimSpace(resp.OutputURL), nil
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GenerateImage 独立的图片生成接口，返回 {imageUrl}；失败时返回 {error, details}。
func (h *HTTPHandler) GenerateImage(c *gin.Context) {
	if h.generator == nil {
		c.JSON(http.StatusServiceUnavailable, generateImageError{Error: "image generator not available"})
		return
	}

	var req entity.GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, generateImageError{Error: "invalid request payload", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, generateImageError{Error: "Prompt is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ProviderTimeout())
	defer cancel()

	imageURL, err := h.generator.Generate(ctx, entity.GenerationRequest{
		Prompt:            req.Prompt,
		// 模型原样透传：只有精确的 "GetImg.ai" 走 getimg，slug 不做归一化
		Model:             req.Model,
		APIKey:            strings.TrimSpace(req.APIKey),
		ReferenceImageURL: strings.TrimSpace(req.ReferenceImageURL),
	})
	if err != nil {
		logrus.WithError(err).WithField("model", req.Model).Warn("generate image request failed")
		respondGenerateImageError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.GenerateImageResponse{ImageURL: imageURL})
}

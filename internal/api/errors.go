package api

import (
	"errors"
	"net/http"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 错误码定义
const (
	// 通用错误码
	ErrCodeInvalidRequest = "ERR_INVALID_REQUEST"
	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeInternalError  = "ERR_INTERNAL_ERROR"
	ErrCodeConfiguration  = "ERR_CONFIGURATION"

	// 资源错误码
	ErrCodeUnknownStage = "ERR_UNKNOWN_STAGE"

	// 生成相关错误码
	ErrCodeMissingField         = "ERR_MISSING_FIELD"
	ErrCodeGenerationInProgress = "ERR_GENERATION_IN_PROGRESS"
	ErrCodeProviderError        = "ERR_PROVIDER_ERROR"
	ErrCodeInvalidImageURL      = "ERR_INVALID_IMAGE_URL"
	ErrCodeFlagUpdateFailed     = "ERR_FLAG_UPDATE_FAILED"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// MissingField 缺少必填字段
func MissingField(c *gin.Context, field string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, field+" is required", gin.H{"field": field})
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request payload")
}

// classifyError 将领域错误映射为 HTTP 状态码、错误码与诊断详情。
func classifyError(err error) (int, string, any) {
	var (
		httpErr *llm.ProviderHTTPError
		respErr *llm.ProviderResponseError
	)
	switch {
	case errors.Is(err, entity.ErrUnknownStage):
		return http.StatusBadRequest, ErrCodeUnknownStage, nil
	case errors.Is(err, entity.ErrInvalidRequest):
		return http.StatusBadRequest, ErrCodeInvalidRequest, nil
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, nil
	case errors.Is(err, entity.ErrGenerationInProgress):
		return http.StatusConflict, ErrCodeGenerationInProgress, nil
	case errors.Is(err, entity.ErrConfiguration):
		return http.StatusInternalServerError, ErrCodeConfiguration, nil
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, ErrCodeProviderError, gin.H{
			"provider":    httpErr.Provider,
			"status_code": httpErr.StatusCode,
			"body":        httpErr.Body,
		}
	case errors.As(err, &respErr):
		return http.StatusBadGateway, ErrCodeProviderError, gin.H{
			"provider": respErr.Provider,
			"payload":  respErr.Payload,
		}
	case errors.Is(err, entity.ErrInvalidImageURL):
		return http.StatusBadGateway, ErrCodeInvalidImageURL, nil
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, nil
	}
}

// respondError 写入领域错误，消息保持原样供前端展示。
func respondError(c *gin.Context, err error) {
	status, code, details := classifyError(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"status": status,
		}).Error("request_failed")
	}
	ErrorResponseWithDetails(c, status, code, err.Error(), details)
}

// generateImageError 是独立生成接口使用的 {error, details} 结构。
type generateImageError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondGenerateImageError(c *gin.Context, err error) {
	status, _, _ := classifyError(err)
	details := err.Error()
	var (
		httpErr *llm.ProviderHTTPError
		respErr *llm.ProviderResponseError
	)
	switch {
	case errors.As(err, &httpErr):
		details = httpErr.Body
	case errors.As(err, &respErr):
		details = respErr.Payload
	}
	c.JSON(status, generateImageError{
		Error:   "Failed to generate image: " + err.Error(),
		Details: details,
	})
}

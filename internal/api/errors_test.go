package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/gin-gonic/gin"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectDetails  bool
	}{
		{"dealer 不存在", fmt.Errorf("dealer d1: %w", entity.ErrNotFound), http.StatusNotFound, ErrCodeNotFound, false},
		{"同阶段正在生成", fmt.Errorf("dealer d1 stage 2: %w", entity.ErrGenerationInProgress), http.StatusConflict, ErrCodeGenerationInProgress, false},
		{"服务商返回 401", &llm.ProviderHTTPError{Provider: llm.ProviderOpenAI, StatusCode: 401, Body: "bad key"}, http.StatusBadGateway, ErrCodeProviderError, true},
		{"数据库故障", errors.New("database is locked"), http.StatusInternalServerError, ErrCodeInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var response APIError
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, response.Code)
			}
			// 消息原样透传给前端
			if response.Message != tt.err.Error() {
				t.Errorf("expected message %q, got %q", tt.err.Error(), response.Message)
			}
			if (response.Details != nil) != tt.expectDetails {
				t.Errorf("details = %v, expectDetails %v", response.Details, tt.expectDetails)
			}
		})
	}
}

func TestValidationResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	MissingField(c, "value")

	var response APIError
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if w.Code != http.StatusBadRequest || response.Code != ErrCodeMissingField {
		t.Errorf("MissingField = %d %s", w.Code, response.Code)
	}
	if details, ok := response.Details.(map[string]any); !ok || details["field"] != "value" {
		t.Errorf("expected field detail, got %v", response.Details)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	InvalidPayload(c)
	if w.Code != http.StatusBadRequest {
		t.Errorf("InvalidPayload status = %d", w.Code)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"无效请求", fmt.Errorf("%w: name is required", entity.ErrInvalidRequest), http.StatusBadRequest, ErrCodeInvalidRequest},
		{"未知阶段", fmt.Errorf("%w: 6", entity.ErrUnknownStage), http.StatusBadRequest, ErrCodeUnknownStage},
		{"不存在", fmt.Errorf("dealer x: %w", entity.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"生成中", entity.ErrGenerationInProgress, http.StatusConflict, ErrCodeGenerationInProgress},
		{"配置错误", fmt.Errorf("%w: OPENAI_API_KEY is not set", entity.ErrConfiguration), http.StatusInternalServerError, ErrCodeConfiguration},
		{"服务商 HTTP 错误", &llm.ProviderHTTPError{Provider: llm.ProviderOpenAI, StatusCode: 500, Body: "boom"}, http.StatusBadGateway, ErrCodeProviderError},
		{"服务商响应错误", fmt.Errorf("wrap: %w", &llm.ProviderResponseError{Provider: llm.ProviderGetImg, Reason: "missing output_url"}), http.StatusBadGateway, ErrCodeProviderError},
		{"无效图片地址", entity.ErrInvalidImageURL, http.StatusBadGateway, ErrCodeInvalidImageURL},
		{"未知错误", errors.New("disk full"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := classifyError(tt.err)
			if status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, status)
			}
			if code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, code)
			}
		})
	}
}

func TestRespondGenerateImageError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondGenerateImageError(c, &llm.ProviderHTTPError{Provider: llm.ProviderOpenAI, StatusCode: 401, Body: `{"error":"bad key"}`})

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, w.Code)
	}
	var response generateImageError
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Details != `{"error":"bad key"}` {
		t.Errorf("expected provider body as details, got %q", response.Details)
	}
	if response.Error == "" {
		t.Error("expected error message")
	}
}

package api

import (
	"net/http"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/gin-gonic/gin"
)

// Health 存活探针
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetCatalog 返回阶段表以及模型、性格选项
func (h *HTTPHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, entity.DefaultCatalog())
}

// ListStages 按阶段升序返回
func (h *HTTPHandler) ListStages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stages": entity.Stages()})
}

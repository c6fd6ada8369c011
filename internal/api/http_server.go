package api

import (
	"net/url"
	"strings"
	"sync"

	"github.com/Louistrash/kaartmodellen/internal/config"
	"github.com/Louistrash/kaartmodellen/internal/llm"
	"github.com/Louistrash/kaartmodellen/internal/service"
	"github.com/Louistrash/kaartmodellen/internal/storage"
	"github.com/gin-gonic/gin"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg       config.Config
	generator llm.ImageGenerator

	// 服务层
	dealers *service.DealerService

	// SSE 客户端管理，按 dealer id 分组
	sseClients map[string][]chan sseMessage
	sseMu      sync.Mutex
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, dealers *service.DealerService, generator llm.ImageGenerator) *HTTPHandler {
	handler := &HTTPHandler{
		cfg:        cfg,
		generator:  generator,
		dealers:    dealers,
		sseClients: make(map[string][]chan sseMessage),
	}

	// 设置 SSE 通知回调
	if dealers != nil {
		dealers.SetNotifyFunc(handler.notifyGenerationEvent)
	}

	return handler
}

// RegisterRoutes 注册健康检查、目录、生成与 dealer 接口
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	apiGroup := r.Group("/api")
	apiGroup.GET("/catalog", h.GetCatalog)
	apiGroup.GET("/stages", h.ListStages)
	apiGroup.POST("/generate-image", h.GenerateImage)

	dealers := apiGroup.Group("/dealers")
	dealers.GET("", h.ListDealers)
	dealers.POST("", h.CreateDealer)
	dealers.GET("/:id", h.GetDealer)
	dealers.PATCH("/:id", h.UpdateDealer)
	dealers.DELETE("/:id", h.DeleteDealer)
	dealers.POST("/:id/stages/:stage/generate", h.GenerateStage)
	dealers.POST("/:id/generate-missing", h.GenerateMissingStages)
	dealers.POST("/:id/outfits/:outfit_id/approve", h.ApproveOutfit)
	dealers.PUT("/:id/active", h.SetActive)
	dealers.PUT("/:id/premium", h.SetPremium)
	dealers.GET("/:id/events", h.StreamDealerEvents)
}

// MountLocalFiles 公共 URL 指向本服务时，直接提供本地镜像文件
func MountLocalFiles(r *gin.Engine, cfg config.Config, store storage.Storage) {
	localProvider, ok := store.(storage.LocalBaseDirProvider)
	if !ok {
		return
	}
	publicPrefix := localPathPrefix(cfg.StoragePublicBaseURL)
	if publicPrefix == "" {
		return
	}
	r.Static(publicPrefix, localProvider.LocalBaseDir())
}

// localPathPrefix 从公共 URL 中提取本服务提供静态文件的路径前缀，外部域名的根路径返回空
func localPathPrefix(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "/files"
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	prefix := strings.TrimRight(parsed.Path, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

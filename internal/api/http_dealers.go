package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) ListDealers(c *gin.Context) {
	var query entity.DealerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dealers, meta, err := h.dealers.ListDealers(ctx, &query)
	if err != nil {
		respondError(c, err)
		return
	}
	if dealers == nil {
		dealers = []entity.DbDealer{}
	}
	c.JSON(http.StatusOK, entity.DealerListResponse{Dealers: dealers, Meta: meta})
}

func (h *HTTPHandler) CreateDealer(c *gin.Context) {
	var req entity.DealerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dealer, err := h.dealers.CreateDealer(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity.DealerDetailResponse{Dealer: dealer})
}

func (h *HTTPHandler) GetDealer(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dealer, err := h.dealers.GetDealer(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.DealerDetailResponse{Dealer: dealer})
}

func (h *HTTPHandler) UpdateDealer(c *gin.Context) {
	var req entity.DealerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dealer, err := h.dealers.UpdateDealer(ctx, c.Param("id"), req.ToUpdates())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.DealerDetailResponse{Dealer: dealer})
}

func (h *HTTPHandler) DeleteDealer(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	deleted, err := h.dealers.DeleteDealer(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// bindGenerateOptions 读取可选的生成参数，允许空请求体
func bindGenerateOptions(c *gin.Context) (entity.GenerateStageRequest, bool) {
	var opts entity.GenerateStageRequest
	if c.Request.ContentLength == 0 {
		return opts, true
	}
	if err := c.ShouldBindJSON(&opts); err != nil {
		InvalidPayload(c)
		return opts, false
	}
	return opts, true
}

// GenerateStage 同步生成一个阶段的图片，进度通过 SSE 推送
func (h *HTTPHandler) GenerateStage(c *gin.Context) {
	stage, err := entity.ParseStage(c.Param("stage"))
	if err != nil {
		respondError(c, err)
		return
	}
	opts, ok := bindGenerateOptions(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.GenerationTimeout())
	defer cancel()

	dealer, outfit, err := h.dealers.GenerateStage(ctx, c.Param("id"), stage, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.GenerateStageResponse{Dealer: dealer, Outfit: outfit})
}

func (h *HTTPHandler) GenerateMissingStages(c *gin.Context) {
	opts, ok := bindGenerateOptions(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.GenerationTimeout())
	defer cancel()

	result, err := h.dealers.GenerateMissingStages(ctx, c.Param("id"), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) ApproveOutfit(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dealer, err := h.dealers.ApproveOutfit(ctx, c.Param("id"), strings.TrimSpace(c.Param("outfit_id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.DealerDetailResponse{Dealer: dealer})
}

func (h *HTTPHandler) SetActive(c *gin.Context) {
	h.setFlag(c, h.dealers.SetActive)
}

func (h *HTTPHandler) SetPremium(c *gin.Context) {
	h.setFlag(c, h.dealers.SetPremium)
}

type flagSetter func(ctx context.Context, id string, value bool) (*entity.DbDealer, service.FlagChange, error)

// setFlag 乐观切换：失败时在 details 中返回 revert_to，供客户端回滚界面状态
func (h *HTTPHandler) setFlag(c *gin.Context, set flagSetter) {
	var req entity.FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	if req.Value == nil {
		MissingField(c, "value")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dealer, change, err := set(ctx, c.Param("id"), *req.Value)
	if err != nil {
		status, _, _ := classifyError(err)
		ErrorResponseWithDetails(c, status, ErrCodeFlagUpdateFailed, err.Error(), gin.H{
			"flag":      change.Flag,
			"requested": change.Requested,
			"revert_to": change.Revert(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dealer": dealer, "change": change})
}

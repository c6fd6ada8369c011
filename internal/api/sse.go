package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 心跳间隔，测试中可缩短
var sseHeartbeatInterval = 10 * time.Second

type sseMessage struct {
	event string
	data  interface{}
}

func (h *HTTPHandler) registerSSEClient(dealerID string, ch chan sseMessage) {
	if h == nil || ch == nil || dealerID == "" {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	if h.sseClients == nil {
		h.sseClients = make(map[string][]chan sseMessage)
	}
	h.sseClients[dealerID] = append(h.sseClients[dealerID], ch)
}

func (h *HTTPHandler) unregisterSSEClient(dealerID string, target chan sseMessage) {
	if h == nil || target == nil || dealerID == "" {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	current := h.sseClients[dealerID]
	if len(current) == 0 {
		return
	}

	remaining := current[:0]
	for _, ch := range current {
		if ch == target {
			continue
		}
		remaining = append(remaining, ch)
	}

	if len(remaining) == 0 {
		delete(h.sseClients, dealerID)
		return
	}

	h.sseClients[dealerID] = remaining
}

func (h *HTTPHandler) publishSSEMessage(dealerID string, msg sseMessage) {
	if h == nil || dealerID == "" {
		return
	}

	h.sseMu.Lock()
	channels := append([]chan sseMessage(nil), h.sseClients[dealerID]...)
	h.sseMu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- msg:
		default:
			logrus.WithFields(logrus.Fields{
				"dealer_id": dealerID,
				"event":     msg.event,
			}).Warn("dropping sse message due to slow consumer")
		}
	}
}

// notifyGenerationEvent 将生成事件转发给订阅该 dealer 的 SSE 客户端
func (h *HTTPHandler) notifyGenerationEvent(event entity.GenerationEvent) {
	h.publishSSEMessage(event.DealerID, sseMessage{
		event: "generation_" + event.Status,
		data:  event,
	})
}

// StreamDealerEvents 以 SSE 推送单个 dealer 的生成事件
func (h *HTTPHandler) StreamDealerEvents(c *gin.Context) {
	dealerID := strings.TrimSpace(c.Param("id"))
	if dealerID == "" {
		MissingField(c, "id")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.dealers.GetDealer(ctx, dealerID); err != nil {
		respondError(c, err)
		return
	}

	events := make(chan sseMessage, 8)
	h.registerSSEClient(dealerID, events)
	defer h.unregisterSSEClient(dealerID, events)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	heartbeatTicker := time.NewTicker(sseHeartbeatInterval)
	defer heartbeatTicker.Stop()

	logrus.WithField("dealer_id", dealerID).Info("dealer sse connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logrus.WithField("dealer_id", dealerID).Info("dealer sse disconnected")
			return false
		case <-heartbeatTicker.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(msg.event, msg.data)
			return true
		}
	})
}

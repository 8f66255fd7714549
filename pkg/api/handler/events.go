package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LENAX/lazyflow/pkg/api/dto"
	"github.com/LENAX/lazyflow/pkg/events"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// EventHandler 运行事件推送处理器
type EventHandler struct {
	bus *events.Bus // 为 nil 时返回 503
}

// NewEventHandler 创建EventHandler
func NewEventHandler(bus *events.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

// Stream 通过WebSocket推送运行事件
// GET /api/v1/events?types=run.started,run.finished
func (h *EventHandler) Stream(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, "事件总线未启用"))
		return
	}
	var query dto.EventsQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}
	eventTypes, err := parseEventTypes(query.Types)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}

	// 先订阅再升级，握手完成后发布的事件不会丢失
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	ch, err := h.bus.SubscribeDropping(ctx, eventTypes...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("订阅失败: %v", err)))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ [事件推送] WebSocket升级失败: %v", err)
		return
	}
	defer ws.Close()

	// 读循环只用于感知客户端断开
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(ev); err != nil {
				log.Printf("⚠️ [事件推送] 写入失败: %v", err)
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func parseEventTypes(raw string) ([]events.EventType, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []events.EventType
	for _, part := range strings.Split(raw, ",") {
		et, ok := events.ParseEventType(strings.TrimSpace(part))
		if !ok {
			return nil, fmt.Errorf("未知的事件类型: %s", part)
		}
		out = append(out, et)
	}
	return out, nil
}

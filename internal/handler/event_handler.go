package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/questbank/internal/service/event"
)

// EventHandler 变更事件处理器
type EventHandler struct {
	bus *event.EventBus
}

// NewEventHandler 创建变更事件处理器
func NewEventHandler(bus *event.EventBus) *EventHandler {
	return &EventHandler{bus: bus}
}

// ListEvents 最近的标签变更
// @Summary      最近的标签变更
// @Tags         标签管理
// @Produce      json
// @Param        tag_id  query     string    false  "只看某个标签"
// @Param        limit   query     int       false  "条数，默认 50"
// @Success      200     {object}  Response  "事件列表，新的在前"
// @Router       /tags/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	events, err := h.bus.Recent(c.Request.Context(), c.Query("tag_id"), limit)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"events": events, "total": len(events)})
}

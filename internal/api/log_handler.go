package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/coffee-bearer/internal/machine"
	"github.com/wfunc/coffee-bearer/internal/models"
	"github.com/wfunc/coffee-bearer/internal/repository"
)

// LogHandler 事件日志与统计处理器
type LogHandler struct {
	machine   *machine.Machine
	eventRepo repository.EventLogRepository
}

// NewLogHandler 创建事件日志处理器
func NewLogHandler(m *machine.Machine, eventRepo repository.EventLogRepository) *LogHandler {
	return &LogHandler{
		machine:   m,
		eventRepo: eventRepo,
	}
}

// Recent 最近的事件日志
func (h *LogHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.eventRepo.GetRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: "查询日志失败",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// ByCategory 按分类分页查询事件日志
func (h *LogHandler) ByCategory(c *gin.Context) {
	category := models.EventCategory(c.Param("category"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	pagination := repository.NewPagination(page, pageSize)
	logs, err := h.eventRepo.GetByCategory(c.Request.Context(), category, pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: "查询日志失败",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": pagination.Total,
		"page":  pagination.Page,
	})
}

// Stats 使用统计
func (h *LogHandler) Stats(c *gin.Context) {
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "10"))

	snapshot := h.machine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":       snapshot,
		"active_today": h.machine.ActiveToday(),
		"top_users":    h.machine.TopUsers(topN),
	})
}

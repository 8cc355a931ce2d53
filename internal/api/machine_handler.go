package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/coffee-bearer/internal/machine"
	"github.com/wfunc/coffee-bearer/internal/middleware"
)

// MachineHandler 机器控制处理器
type MachineHandler struct {
	machine *machine.Machine
}

// NewMachineHandler 创建机器控制处理器
func NewMachineHandler(m *machine.Machine) *MachineHandler {
	return &MachineHandler{machine: m}
}

// Status 当前状态快照
func (h *MachineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.machine.Snapshot())
}

// Serve 手动出杯（不扣额度）
func (h *MachineHandler) Serve(c *gin.Context) {
	username, _ := middleware.GetUsername(c)
	if !h.machine.ServeManual(username) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "SERVE_REJECTED",
			Message: "当前无法出杯",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "出杯已开始"})
}

// Refill 补满容器
func (h *MachineHandler) Refill(c *gin.Context) {
	h.machine.Refill()
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "容器已补满",
		Data:    h.machine.Snapshot(),
	})
}

// AdjustCount 调整剩余杯数
func (h *MachineHandler) AdjustCount(c *gin.Context) {
	var req struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if !h.machine.AdjustCount(req.Delta) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "OUT_OF_RANGE",
			Message: "调整后的杯数超出容量范围",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "杯数已调整",
		Data:    h.machine.Snapshot(),
	})
}

// SetRemaining 设置剩余杯数
func (h *MachineHandler) SetRemaining(c *gin.Context) {
	var req struct {
		Remaining *int `json:"remaining" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if !h.machine.SetRemaining(*req.Remaining) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "OUT_OF_RANGE",
			Message: "杯数超出容量范围",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "杯数已设置",
		Data:    h.machine.Snapshot(),
	})
}

// EmergencyStop 紧急停止
func (h *MachineHandler) EmergencyStop(c *gin.Context) {
	h.machine.EmergencyStop()
	c.JSON(http.StatusOK, SuccessResponse{Message: "已紧急停止"})
}

// SetScanMode 切换刷卡模式
func (h *MachineHandler) SetScanMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required,oneof=normal capture"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	mode := machine.ScanModeNormal
	if req.Mode == "capture" {
		mode = machine.ScanModeCapture
	}
	h.machine.SetScanMode(mode)
	c.JSON(http.StatusOK, SuccessResponse{Message: "刷卡模式已切换"})
}

// ResetCredits 立即执行每周额度重置
func (h *MachineHandler) ResetCredits(c *gin.Context) {
	h.machine.PerformWeeklyReset()
	c.JSON(http.StatusOK, SuccessResponse{Message: "额度已重置"})
}

// FactoryReset 恢复出厂（清空卡片与计数）
func (h *MachineHandler) FactoryReset(c *gin.Context) {
	if err := h.machine.ClearAllData(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "RESET_FAILED",
			Message: "恢复出厂失败",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "已恢复出厂设置"})
}

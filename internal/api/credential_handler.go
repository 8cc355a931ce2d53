package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/coffee-bearer/internal/machine"
)

// CredentialHandler 卡片管理处理器
type CredentialHandler struct {
	machine *machine.Machine
}

// NewCredentialHandler 创建卡片管理处理器
func NewCredentialHandler(m *machine.Machine) *CredentialHandler {
	return &CredentialHandler{machine: m}
}

// List 全部卡片
func (h *CredentialHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"users": h.machine.Credentials(),
		"count": len(h.machine.Credentials()),
	})
}

// Create 登记卡片
func (h *CredentialHandler) Create(c *gin.Context) {
	var req struct {
		UID  string `json:"uid" binding:"required"`
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if !h.machine.AddCredential(req.UID, req.Name) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "ADD_REJECTED",
			Message: "登记失败：UID格式错误、已存在或用户数已满",
		})
		return
	}

	cred, _ := h.machine.FindCredential(req.UID)
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "卡片已登记",
		Data:    cred,
	})
}

// Get 查询单张卡片
func (h *CredentialHandler) Get(c *gin.Context) {
	uid := c.Param("uid")
	cred, found := h.machine.FindCredential(uid)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "卡片未登记",
		})
		return
	}
	c.JSON(http.StatusOK, cred)
}

// Update 更新卡片用户名
func (h *CredentialHandler) Update(c *gin.Context) {
	uid := c.Param("uid")
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if !h.machine.UpdateCredential(uid, req.Name) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "卡片未登记",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "卡片已更新"})
}

// Delete 注销卡片
func (h *CredentialHandler) Delete(c *gin.Context) {
	uid := c.Param("uid")
	if !h.machine.RemoveCredential(uid) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "卡片未登记",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "卡片已注销"})
}

// SetCredits 设置额度
func (h *CredentialHandler) SetCredits(c *gin.Context) {
	uid := c.Param("uid")
	var req struct {
		Credits *int `json:"credits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if !h.machine.SetCredits(uid, *req.Credits) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "SET_CREDITS_FAILED",
			Message: "设置额度失败：卡片未登记或额度为负",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "额度已设置"})
}

// AddCredits 增加额度
func (h *CredentialHandler) AddCredits(c *gin.Context) {
	uid := c.Param("uid")
	var req struct {
		Amount int `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if !h.machine.AddCredits(uid, req.Amount) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "ADD_CREDITS_FAILED",
			Message: "增加额度失败：卡片未登记",
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "额度已增加"})
}

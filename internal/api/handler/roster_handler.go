package handler

import (
	"github.com/gin-gonic/gin"

	"exam-duty/internal/service"
	"exam-duty/pkg/response"
)

// RosterHandler 名册模块 HTTP 处理器
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// ListStaff 教职工及累计监考次数
// GET /api/v1/staff
func (h *RosterHandler) ListStaff(c *gin.Context) {
	staff, err := h.rosterSvc.ListStaff(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": staff})
}

// ListBlocks 考区选项
// GET /api/v1/halls/blocks
func (h *RosterHandler) ListBlocks(c *gin.Context) {
	blocks, err := h.rosterSvc.ListBlocks(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": blocks})
}

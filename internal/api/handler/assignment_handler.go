package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exam-duty/internal/allocation"
	"exam-duty/internal/dto"
	"exam-duty/internal/service"
	pkgerrors "exam-duty/pkg/errors"
	"exam-duty/pkg/response"
)

// AssignmentHandler 监考分配模块 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// List 分配列表（按日期分组 + 统计）
// GET /api/v1/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	result, err := h.assignmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// Freeze 冻结单条分配
// POST /api/v1/assignments/:id/freeze
func (h *AssignmentHandler) Freeze(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", 21001)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.FreezeOne(c.Request.Context(), id)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// FreezeAll 冻结筛选结果中的全部未冻结分配
// POST /api/v1/assignments/freeze
func (h *AssignmentHandler) FreezeAll(c *gin.Context) {
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	result, err := h.assignmentSvc.FreezeAll(c.Request.Context(), &req)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, http.StatusInternalServerError, 21006, "批量冻结中途失败", result)
			return
		}
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// GetCandidates 可调整的候选监考人
// GET /api/v1/assignments/:id/candidates
func (h *AssignmentHandler) GetCandidates(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", 21001)
	if !ok {
		return
	}

	candidates, err := h.assignmentSvc.GetCandidates(c.Request.Context(), id)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": candidates})
}

// Reassign 人工调整监考人
// PUT /api/v1/assignments/:id/staff
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id", 21001)
	if !ok {
		return
	}

	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	result, err := h.assignmentSvc.Reassign(c.Request.Context(), id, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ListChangeLogs 调整记录
// GET /api/v1/assignments/change-logs
func (h *AssignmentHandler) ListChangeLogs(c *gin.Context) {
	var req dto.ChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	logs, total, err := h.assignmentSvc.ListChangeLogs(c.Request.Context(), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 21002, "监考分配不存在")
	case errors.Is(err, allocation.ErrAssignmentFrozen):
		response.Conflict(c, 21003, "监考分配已冻结，不可修改")
	case errors.Is(err, service.ErrCandidateNotEligible):
		response.UnprocessableEntity(c, 21004, "该教职工当日不可监考此考场")
	case errors.Is(err, service.ErrStaffNotFound):
		response.NotFound(c, 21005, "教职工不存在")
	case errors.Is(err, service.ErrSameStaff):
		response.BadRequest(c, 21007, "新监考人与当前监考人相同")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 21008, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

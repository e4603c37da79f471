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

// AllocationHandler 分配模块 HTTP 处理器
type AllocationHandler struct {
	allocationSvc service.AllocationService
}

// NewAllocationHandler 创建 AllocationHandler
func NewAllocationHandler(allocationSvc service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocationSvc: allocationSvc}
}

// Run 执行分配
// POST /api/v1/allocations
func (h *AllocationHandler) Run(c *gin.Context) {
	var req dto.RunAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 20001, err)
		return
	}

	result, err := h.allocationSvc.Run(c.Request.Context(), &req)
	if err != nil {
		h.handleAllocationError(c, result, err)
		return
	}

	response.Created(c, result)
}

func (h *AllocationHandler) handleAllocationError(c *gin.Context, partial *dto.RunAllocationResponse, err error) {
	var aborted *allocation.RunAbortedError
	switch {
	case errors.Is(err, allocation.ErrNoBlocksSelected):
		response.UnprocessableEntity(c, 20002, "请至少选择一个考区")
	case errors.Is(err, allocation.ErrInsufficientSchedule):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 20003, "有效考试安排不足", err.Error())
	case errors.Is(err, allocation.ErrInvalidScope):
		response.UnprocessableEntity(c, 20004, "学年、考试类型与考试对象不能为空")
	case errors.Is(err, service.ErrAllocationInProgress):
		response.Conflict(c, 20005, "该考试范围正在分配中，请稍后重试")
	case errors.Is(err, pkgerrors.ErrLockUnavailable):
		response.ServiceUnavailable(c, 20006, "分配租约服务不可用")
	case errors.As(err, &aborted) && partial != nil:
		response.ErrorWithData(c, http.StatusInternalServerError, 20007, "分配中途终止，已完成部分已保存", partial)
	default:
		response.InternalError(c)
	}
}

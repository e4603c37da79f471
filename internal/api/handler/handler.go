package handler

import "exam-duty/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Allocation *AllocationHandler
	Assignment *AssignmentHandler
	Roster     *RosterHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Allocation: NewAllocationHandler(svc.Allocation),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Roster:     NewRosterHandler(svc.Roster),
		Export:     NewExportHandler(svc.Export),
	}
}

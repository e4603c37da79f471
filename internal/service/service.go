package service

import (
	"go.uber.org/zap"

	"exam-duty/config"
	"exam-duty/internal/repository"
	"exam-duty/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Allocation AllocationService
	Assignment AssignmentService
	Roster     RosterService
	Export     ExportService
}

// NewService 创建 Service 聚合；locker 为 nil 表示租约服务不可用
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker Locker,
	rec metrics.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		Allocation: NewAllocationService(cfg.Allocation, repo, locker, rec, logger),
		Assignment: NewAssignmentService(repo, rec, logger),
		Roster:     NewRosterService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}

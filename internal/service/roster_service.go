package service

import (
	"context"

	"go.uber.org/zap"

	"exam-duty/internal/dto"
	"exam-duty/internal/repository"
	"exam-duty/pkg/validate"
)

// RosterService 教职工与考场名册查询
type RosterService interface {
	// ListStaff 返回教职工及各考试类型的累计监考次数（冻结后计入）
	ListStaff(ctx context.Context) ([]dto.StaffResponse, error)
	ListBlocks(ctx context.Context) ([]string, error)
}

type rosterService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(repo *repository.Repository, logger *zap.Logger) RosterService {
	return &rosterService{repo: repo, logger: logger}
}

func (s *rosterService) ListStaff(ctx context.Context) ([]dto.StaffResponse, error) {
	staff, err := s.repo.Staff.List(ctx)
	if err != nil {
		s.logger.Error("查询教职工失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.StaffResponse, 0, len(staff))
	for i := range staff {
		st := &staff[i]
		totals := make(map[string]int, len(validate.ExamTypes))
		for _, t := range validate.ExamTypes {
			totals[t] = st.InvigilationCount.Total(t)
		}
		result = append(result, dto.StaffResponse{
			ID:          st.StaffID,
			Name:        st.Name,
			Designation: st.Designation,
			Subject1:    st.Subject1,
			Subject2:    st.Subject2,
			Email:       st.Email,
			Totals:      totals,
			ByYear:      st.InvigilationCount.Clone().ByYear,
		})
	}
	return result, nil
}

func (s *rosterService) ListBlocks(ctx context.Context) ([]string, error) {
	blocks, err := s.repo.Hall.ListBlocks(ctx)
	if err != nil {
		s.logger.Error("查询考区失败", zap.Error(err))
		return nil, err
	}
	if blocks == nil {
		blocks = []string{}
	}
	return blocks, nil
}

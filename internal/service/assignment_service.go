package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-duty/internal/allocation"
	"exam-duty/internal/dto"
	"exam-duty/internal/model"
	"exam-duty/internal/repository"
	pkgerrors "exam-duty/pkg/errors"
	"exam-duty/pkg/metrics"
)

// ── 监考分配模块业务错误 ──

var (
	ErrAssignmentNotFound   = errors.New("监考分配不存在")
	ErrStaffNotFound        = errors.New("教职工不存在")
	ErrCandidateNotEligible = errors.New("该教职工当日不可监考此考场")
	ErrSameStaff            = errors.New("新监考人与当前监考人相同")
)

// AssignmentService 监考分配查询、冻结与人工调整
type AssignmentService interface {
	List(ctx context.Context, req *dto.AssignmentListRequest) (*dto.AssignmentListResponse, error)
	FreezeOne(ctx context.Context, id string) (*dto.AssignmentResponse, error)
	// FreezeAll 依次冻结筛选结果中未冻结的分配，失败时停止并返回进度
	FreezeAll(ctx context.Context, req *dto.AssignmentListRequest) (*dto.FreezeAllResponse, error)
	GetCandidates(ctx context.Context, id string) ([]dto.CandidateResponse, error)
	Reassign(ctx context.Context, id string, req *dto.ReassignRequest) (*dto.AssignmentResponse, error)
	ListChangeLogs(ctx context.Context, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error)
}

type assignmentService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, rec metrics.Recorder, logger *zap.Logger) AssignmentService {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &assignmentService{repo: repo, metrics: rec, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *assignmentService) List(ctx context.Context, req *dto.AssignmentListRequest) (*dto.AssignmentListResponse, error) {
	list, err := s.repo.Assignment.List(ctx, req.Filter())
	if err != nil {
		s.logger.Error("查询监考分配失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.AssignmentListResponse{Groups: []dto.AssignmentDateGroup{}}
	staff := make(map[string]struct{})
	byDate := make(map[string][]dto.AssignmentResponse)
	for i := range list {
		a := &list[i]
		resp.Stats.Total++
		if a.Frozen {
			resp.Stats.Frozen++
		}
		staff[a.StaffID] = struct{}{}
		byDate[a.ExamDate] = append(byDate[a.ExamDate], toAssignmentResponse(a))
	}
	resp.Stats.Open = resp.Stats.Total - resp.Stats.Frozen
	resp.Stats.UniqueStaff = len(staff)

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		resp.Groups = append(resp.Groups, dto.AssignmentDateGroup{Date: d, Assignments: byDate[d]})
	}
	return resp, nil
}

// ────────────────────── Freeze ──────────────────────

func (s *assignmentService) FreezeOne(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	a, err := s.repo.Assignment.Freeze(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrAssignmentNotFound
		case errors.Is(err, allocation.ErrAssignmentFrozen):
			s.metrics.RecordFreeze("frozen", 1)
			return nil, err
		}
		s.metrics.RecordFreeze("failure", 1)
		s.logger.Error("冻结监考分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordFreeze("success", 1)
	s.logger.Info("监考分配已冻结",
		zap.String("id", a.AssignmentID),
		zap.String("staff_id", a.StaffID),
		zap.String("exam_type", a.ExamType),
	)
	resp := toAssignmentResponse(a)
	return &resp, nil
}

func (s *assignmentService) FreezeAll(ctx context.Context, req *dto.AssignmentListRequest) (*dto.FreezeAllResponse, error) {
	list, err := s.repo.Assignment.List(ctx, req.Filter())
	if err != nil {
		s.logger.Error("查询监考分配失败", zap.Error(err))
		return nil, err
	}

	open := allocation.OpenAssignments(list)
	resp := &dto.FreezeAllResponse{}
	for i := range open {
		id := open[i].AssignmentID
		_, err := s.repo.Assignment.Freeze(ctx, id)
		if errors.Is(err, allocation.ErrAssignmentFrozen) {
			// 期间已被其他操作冻结，计数已由那次冻结完成
			continue
		}
		if err != nil {
			resp.FailedID = id
			resp.Remaining = len(open) - i
			s.metrics.RecordFreeze("success", resp.Frozen)
			s.metrics.RecordFreeze("failure", 1)
			s.logger.Error("批量冻结中止",
				zap.String("failed_id", id),
				zap.Int("frozen", resp.Frozen),
				zap.Int("remaining", resp.Remaining),
				zap.Error(err),
			)
			return resp, err
		}
		resp.Frozen++
	}

	s.metrics.RecordFreeze("success", resp.Frozen)
	s.logger.Info("批量冻结完成", zap.Int("frozen", resp.Frozen))
	return resp, nil
}

// ────────────────────── Candidates ──────────────────────

func (s *assignmentService) GetCandidates(ctx context.Context, id string) ([]dto.CandidateResponse, error) {
	target, candidates, err := s.loadCandidates(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]dto.CandidateResponse, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		result = append(result, dto.CandidateResponse{
			StaffID:     c.StaffID,
			Name:        c.Name,
			Designation: c.Designation,
			Subject1:    c.Subject1,
			Subject2:    c.Subject2,
			Email:       c.Email,
			Current:     c.StaffID == target.StaffID,
		})
	}
	return result, nil
}

// loadCandidates 读取目标分配、同日同范围的全部分配与名册，计算候选人
func (s *assignmentService) loadCandidates(ctx context.Context, id string) (*model.Assignment, []model.Staff, error) {
	target, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询监考分配失败", zap.String("id", id), zap.Error(err))
		return nil, nil, err
	}

	filter := allocation.Scope{
		AcademicYear: target.AcademicYear,
		ExamType:     target.ExamType,
		ExamYear:     target.ExamYear,
	}.Filter()
	filter.ExamDate = target.ExamDate

	sameDay, err := s.repo.Assignment.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询同日监考分配失败", zap.String("date", target.ExamDate), zap.Error(err))
		return nil, nil, err
	}

	staff, err := s.repo.Staff.List(ctx)
	if err != nil {
		s.logger.Error("查询教职工失败", zap.Error(err))
		return nil, nil, err
	}

	return target, allocation.Candidates(target, sameDay, staff), nil
}

// ────────────────────── Reassign ──────────────────────

func (s *assignmentService) Reassign(ctx context.Context, id string, req *dto.ReassignRequest) (*dto.AssignmentResponse, error) {
	target, candidates, err := s.loadCandidates(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allocation.CheckMutable(target); err != nil {
		s.metrics.RecordReassign("frozen")
		return nil, err
	}
	if req.StaffID == target.StaffID {
		return nil, ErrSameStaff
	}

	chosen, ok := allocation.IsCandidate(candidates, req.StaffID)
	if !ok {
		if _, err := s.repo.Staff.GetByID(ctx, req.StaffID); errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		s.metrics.RecordReassign("rejected")
		return nil, ErrCandidateNotEligible
	}

	log := &model.AssignmentChangeLog{
		AssignmentID:    target.AssignmentID,
		OriginalStaffID: target.StaffID,
		NewStaffID:      chosen.StaffID,
		Reason:          req.Reason,
	}
	target.StaffID = chosen.StaffID
	target.StaffName = chosen.Name
	target.StaffEmail = chosen.Email
	target.Designation = chosen.Designation

	if err := s.repo.Assignment.Reassign(ctx, target, log); err != nil {
		if errors.Is(err, pkgerrors.ErrStaffDateConflict) {
			// 候选人校验之后该教职工在同日获得了其他分配
			s.metrics.RecordReassign("rejected")
			s.logger.Warn("调整监考人冲突，新监考人当日已有分配",
				zap.String("id", id), zap.String("staff_id", log.NewStaffID))
			return nil, ErrCandidateNotEligible
		}
		s.metrics.RecordReassign("failure")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		if !errors.Is(err, allocation.ErrAssignmentFrozen) {
			s.logger.Error("调整监考人失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordReassign("success")
	s.logger.Info("监考人已调整",
		zap.String("id", id),
		zap.String("from", log.OriginalStaffID),
		zap.String("to", log.NewStaffID),
	)
	resp := toAssignmentResponse(target)
	return &resp, nil
}

// ────────────────────── ChangeLogs ──────────────────────

func (s *assignmentService) ListChangeLogs(ctx context.Context, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error) {
	logs, total, err := s.repo.ChangeLog.List(ctx, req.AssignmentID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询调整记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ChangeLogResponse, 0, len(logs))
	for _, l := range logs {
		result = append(result, dto.ChangeLogResponse{
			ID:              l.ChangeLogID,
			AssignmentID:    l.AssignmentID,
			OriginalStaffID: l.OriginalStaffID,
			NewStaffID:      l.NewStaffID,
			Reason:          l.Reason,
			CreatedAt:       l.CreatedAt.Format(dto.TimeLayout),
		})
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		ID:           a.AssignmentID,
		AcademicYear: a.AcademicYear,
		ExamType:     a.ExamType,
		ExamYear:     a.ExamYear,
		ExamDate:     a.ExamDate,
		Subject:      a.Subject,
		Block:        a.Block,
		Hall:         a.Hall,
		StaffID:      a.StaffID,
		StaffName:    a.StaffName,
		StaffEmail:   a.StaffEmail,
		Designation:  a.Designation,
		Frozen:       a.Frozen,
		Version:      a.Version,
	}
	if a.FrozenAt != nil {
		t := a.FrozenAt.Format(dto.TimeLayout)
		resp.FrozenAt = &t
	}
	return resp
}

package dto

import "exam-duty/internal/model"

// ── 监考分配模块 DTO ──

// AssignmentListRequest 分配列表 / 批量冻结 / 导出共用的筛选参数
type AssignmentListRequest struct {
	AcademicYear string   `form:"academic_year" binding:"max=20"`
	ExamType     string   `form:"exam_type"     binding:"omitempty,exam_type"`
	ExamYear     string   `form:"exam_year"     binding:"omitempty,exam_year"`
	Blocks       []string `form:"block"`
	ExamDate     string   `form:"exam_date"     binding:"omitempty,exam_date"`
	Subject      string   `form:"subject"       binding:"max=100"`
	Frozen       *bool    `form:"frozen"`
}

// Filter 转换为仓储查询条件
func (r *AssignmentListRequest) Filter() model.AssignmentFilter {
	return model.AssignmentFilter{
		AcademicYear: r.AcademicYear,
		ExamType:     r.ExamType,
		ExamYear:     r.ExamYear,
		Blocks:       r.Blocks,
		ExamDate:     r.ExamDate,
		Subject:      r.Subject,
		Frozen:       r.Frozen,
	}
}

// ReassignRequest 人工调整监考人请求
type ReassignRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
	Reason  string `json:"reason"   binding:"max=500"`
}

// ChangeLogListRequest 调整记录列表查询参数
type ChangeLogListRequest struct {
	AssignmentID string `form:"assignment_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// ── 响应 ──

// AssignmentResponse 监考分配响应
type AssignmentResponse struct {
	ID           string  `json:"id"`
	AcademicYear string  `json:"academic_year"`
	ExamType     string  `json:"exam_type"`
	ExamYear     string  `json:"exam_year"`
	ExamDate     string  `json:"exam_date"`
	Subject      string  `json:"subject"`
	Block        string  `json:"block"`
	Hall         string  `json:"hall"`
	StaffID      string  `json:"staff_id"`
	StaffName    string  `json:"staff_name"`
	StaffEmail   string  `json:"staff_email,omitempty"`
	Designation  string  `json:"designation,omitempty"`
	Frozen       bool    `json:"frozen"`
	FrozenAt     *string `json:"frozen_at,omitempty"`
	Version      int     `json:"version"`
}

// AssignmentStats 当前筛选结果的汇总
type AssignmentStats struct {
	Total       int `json:"total"`
	Frozen      int `json:"frozen"`
	Open        int `json:"open"`
	UniqueStaff int `json:"unique_staff"`
}

// AssignmentDateGroup 按考试日期分组
type AssignmentDateGroup struct {
	Date        string               `json:"date"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// AssignmentListResponse 分配列表响应
type AssignmentListResponse struct {
	Stats  AssignmentStats       `json:"stats"`
	Groups []AssignmentDateGroup `json:"groups"`
}

// FreezeAllResponse 批量冻结结果；FailedID 非空表示在该记录处失败并停止
type FreezeAllResponse struct {
	Frozen    int    `json:"frozen"`
	Remaining int    `json:"remaining"`
	FailedID  string `json:"failed_id,omitempty"`
}

// CandidateResponse 可调整的候选监考人
type CandidateResponse struct {
	StaffID     string `json:"staff_id"`
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
	Subject1    string `json:"subject1,omitempty"`
	Subject2    string `json:"subject2,omitempty"`
	Email       string `json:"email,omitempty"`
	Current     bool   `json:"current"`
}

// ChangeLogResponse 调整记录响应
type ChangeLogResponse struct {
	ID              string `json:"id"`
	AssignmentID    string `json:"assignment_id"`
	OriginalStaffID string `json:"original_staff_id"`
	NewStaffID      string `json:"new_staff_id"`
	Reason          string `json:"reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// Package allocation 监考分配核心：冲突模型、分配引擎、冻结规则与人工调整候选人计算。
//
// 本包不依赖具体存储，只通过 Roster / Ledger 接口读写；
// 一次分配内的游标、计数与占用日期都归属于单次运行，不存在包级可变状态。
package allocation

import (
	"context"
	"errors"
	"fmt"

	"exam-duty/internal/model"
)

// MinScheduleEntries 一次分配至少需要的有效考试安排条数
const MinScheduleEntries = 5

// NoHallPlaceholder 考区未配置考场时未分配条目中的考场占位
const NoHallPlaceholder = "No hall configured"

// ── 业务错误 ──

var (
	ErrNoBlocksSelected     = errors.New("未选择考区")
	ErrInsufficientSchedule = errors.New("有效考试安排不足")
	ErrInvalidScope         = errors.New("学年、考试类型与考试对象不能为空")
	ErrAssignmentFrozen     = errors.New("监考分配已冻结，不可修改")
)

// Scope 计数与冲突判断的边界 (academicYear, examType, examYear)
type Scope struct {
	AcademicYear string
	ExamType     string
	ExamYear     string
}

// Filter 转换为按范围查询的条件
func (s Scope) Filter() model.AssignmentFilter {
	return model.AssignmentFilter{
		AcademicYear: s.AcademicYear,
		ExamType:     s.ExamType,
		ExamYear:     s.ExamYear,
	}
}

// ExamEntry 一条考试安排
type ExamEntry struct {
	Date    string
	Subject string
}

// Request 一次分配的输入
type Request struct {
	Scope
	Blocks   []string
	Schedule []ExamEntry
	Caps     Caps
}

// Unfilled 未能分配到监考人员的槽位
type Unfilled struct {
	Date    string `json:"date"`
	Subject string `json:"subject"`
	Hall    string `json:"hall"`
	Block   string `json:"block"`
}

// Result 一次分配的输出
//
// Created 中的记录均已持久化；Skipped 为账本中已存在分配而跳过的 (考场, 日期) 槽位数。
type Result struct {
	Created  []model.Assignment
	Unfilled []Unfilled
	Skipped  int
}

// Roster 教职工与考场名册（只读）
type Roster interface {
	ListStaff(ctx context.Context) ([]model.Staff, error)
	ListHalls(ctx context.Context) ([]model.Hall, error)
}

// Ledger 监考分配账本
type Ledger interface {
	ListAssignments(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error)
	CreateAssignment(ctx context.Context, a *model.Assignment) error
}

// RunAbortedError 持久化失败导致分配中途终止。
// 终止前已写入的分配保留在账本中，重新执行时会作为历史记录参与计算。
type RunAbortedError struct {
	Entry ExamEntry
	Block string
	Hall  string
	Err   error
}

func (e *RunAbortedError) Error() string {
	return fmt.Sprintf("分配在 %s %s / %s-%s 处中止: %v", e.Entry.Date, e.Entry.Subject, e.Block, e.Hall, e.Err)
}

func (e *RunAbortedError) Unwrap() error { return e.Err }

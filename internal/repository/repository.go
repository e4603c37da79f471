package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-duty/internal/model"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Staff      StaffRepository
	Hall       HallRepository
	Assignment AssignmentRepository
	ChangeLog  AssignmentChangeLogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Staff:      NewStaffRepo(db),
		Hall:       NewHallRepo(db),
		Assignment: NewAssignmentRepo(db),
		ChangeLog:  NewAssignmentChangeLogRepo(db),
	}
}

// Roster 以名册仓储实现 allocation.Roster
func (r *Repository) Roster() *RosterAdapter {
	return &RosterAdapter{staff: r.Staff, halls: r.Hall}
}

// Ledger 以分配仓储实现 allocation.Ledger
func (r *Repository) Ledger() *LedgerAdapter {
	return &LedgerAdapter{assignments: r.Assignment}
}

// RosterAdapter allocation.Roster 实现
type RosterAdapter struct {
	staff StaffRepository
	halls HallRepository
}

func (a *RosterAdapter) ListStaff(ctx context.Context) ([]model.Staff, error) {
	return a.staff.List(ctx)
}

func (a *RosterAdapter) ListHalls(ctx context.Context) ([]model.Hall, error) {
	return a.halls.List(ctx)
}

// LedgerAdapter allocation.Ledger 实现
type LedgerAdapter struct {
	assignments AssignmentRepository
}

func (a *LedgerAdapter) ListAssignments(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	return a.assignments.List(ctx, filter)
}

func (a *LedgerAdapter) CreateAssignment(ctx context.Context, as *model.Assignment) error {
	return a.assignments.Create(ctx, as)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam-duty/internal/allocation"
	"exam-duty/internal/model"
	pkgerrors "exam-duty/pkg/errors"
)

// AssignmentRepository 监考分配账本数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error)
	// Reassign 条件更新监考人快照（未冻结且版本一致）并写入调整记录，二者同一事务
	Reassign(ctx context.Context, a *model.Assignment, log *model.AssignmentChangeLog) error
	// Freeze 冻结分配并递增教职工计数，二者同一事务；已冻结返回 allocation.ErrAssignmentFrozen
	Freeze(ctx context.Context, id string) (*model.Assignment, error)
}

// AssignmentChangeLogRepository 人工调整记录数据访问接口
type AssignmentChangeLogRepository interface {
	Create(ctx context.Context, log *model.AssignmentChangeLog) error
	// List assignmentID 为空时返回全部记录
	List(ctx context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error)
}

// ── Assignment Repository 实现 ──

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return translateUniqueViolation(r.db.WithContext(ctx).Create(a).Error)
}

// pgUniqueViolation PostgreSQL unique_violation 错误码
const pgUniqueViolation = "23505"

// 唯一索引名，见 pkg/database/migrations
const (
	uqAssignmentsSlot      = "uq_assignments_slot"
	uqAssignmentsStaffDate = "uq_assignments_staff_date"
)

// translateUniqueViolation 将分配表唯一索引冲突转换为业务错误，其余错误原样返回
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case uqAssignmentsSlot:
		return fmt.Errorf("%w: %s", pkgerrors.ErrSlotTaken, pgErr.Detail)
	case uqAssignmentsStaffDate:
		return fmt.Errorf("%w: %s", pkgerrors.ErrStaffDateConflict, pgErr.Detail)
	}
	return err
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	var list []model.Assignment
	err := applyAssignmentFilter(r.db.WithContext(ctx), filter).
		Order("exam_date ASC, created_at ASC, assignment_id ASC").
		Find(&list).Error
	return list, err
}

func applyAssignmentFilter(db *gorm.DB, f model.AssignmentFilter) *gorm.DB {
	if f.AcademicYear != "" {
		db = db.Where("academic_year = ?", f.AcademicYear)
	}
	if f.ExamType != "" {
		db = db.Where("exam_type = ?", f.ExamType)
	}
	if f.ExamYear != "" {
		db = db.Where("exam_year = ?", f.ExamYear)
	}
	if len(f.Blocks) > 0 {
		db = db.Where("block IN ?", f.Blocks)
	}
	if f.ExamDate != "" {
		db = db.Where("exam_date = ?", f.ExamDate)
	}
	if sub := strings.ToLower(strings.TrimSpace(f.Subject)); sub != "" {
		db = db.Where("LOWER(TRIM(subject)) LIKE ? ESCAPE '\\'", "%"+escapeLike(sub)+"%")
	}
	if f.Frozen != nil {
		db = db.Where("frozen = ?", *f.Frozen)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (r *assignmentRepo) Reassign(ctx context.Context, a *model.Assignment, log *model.AssignmentChangeLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldVersion := a.Version
		result := tx.Model(&model.Assignment{}).
			Where("assignment_id = ? AND version = ? AND frozen = ?", a.AssignmentID, oldVersion, false).
			Updates(map[string]interface{}{
				"staff_id":    a.StaffID,
				"staff_name":  a.StaffName,
				"staff_email": a.StaffEmail,
				"designation": a.Designation,
				"version":     oldVersion + 1,
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			// 并发调整或分配已让新监考人当日有其他分配
			return translateUniqueViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return r.classifyMiss(tx, a.AssignmentID, pkgerrors.ErrOptimisticLock)
		}
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		a.Version = oldVersion + 1
		return nil
	})
}

func (r *assignmentRepo) Freeze(ctx context.Context, id string) (*model.Assignment, error) {
	var frozen model.Assignment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&model.Assignment{}).
			Where("assignment_id = ? AND frozen = ?", id, false).
			Updates(map[string]interface{}{
				"frozen":     true,
				"frozen_at":  now,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.classifyMiss(tx, id, allocation.ErrAssignmentFrozen)
		}

		if err := tx.Where("assignment_id = ?", id).First(&frozen).Error; err != nil {
			return err
		}

		var staff model.Staff
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("staff_id = ?", frozen.StaffID).
			First(&staff).Error; err != nil {
			return err
		}

		counts := allocation.ApplyFreeze(staff.InvigilationCount, &frozen)
		return tx.Model(&model.Staff{}).
			Where("staff_id = ?", staff.StaffID).
			Updates(map[string]interface{}{
				"invigilation_count": counts,
				"version":            gorm.Expr("version + 1"),
				"updated_at":         now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &frozen, nil
}

// classifyMiss 条件更新未命中时区分：记录不存在 / 已冻结 / 其他（fallback）
func (r *assignmentRepo) classifyMiss(tx *gorm.DB, id string, fallback error) error {
	var current model.Assignment
	if err := tx.Select("assignment_id", "frozen").Where("assignment_id = ?", id).First(&current).Error; err != nil {
		return err
	}
	if current.Frozen {
		return allocation.ErrAssignmentFrozen
	}
	if errors.Is(fallback, allocation.ErrAssignmentFrozen) {
		// 未冻结却未命中，只可能是并发修改
		return pkgerrors.ErrOptimisticLock
	}
	return fallback
}

// ── AssignmentChangeLog Repository 实现 ──

type assignmentChangeLogRepo struct {
	db *gorm.DB
}

func NewAssignmentChangeLogRepo(db *gorm.DB) AssignmentChangeLogRepository {
	return &assignmentChangeLogRepo{db: db}
}

func (r *assignmentChangeLogRepo) Create(ctx context.Context, log *model.AssignmentChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *assignmentChangeLogRepo) List(ctx context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error) {
	var logs []model.AssignmentChangeLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AssignmentChangeLog{})
	if assignmentID != "" {
		db = db.Where("assignment_id = ?", assignmentID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}

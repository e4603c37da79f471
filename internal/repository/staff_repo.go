package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-duty/internal/model"
)

// StaffRepository 教职工名册数据访问接口（分配引擎只读）
type StaffRepository interface {
	// List 按录入顺序返回全部在册教职工，分配游标依赖此顺序
	List(ctx context.Context) ([]model.Staff, error)
	GetByID(ctx context.Context, id string) (*model.Staff, error)
}

type staffRepo struct {
	db *gorm.DB
}

func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db: db}
}

func (r *staffRepo) List(ctx context.Context) ([]model.Staff, error) {
	var staff []model.Staff
	err := r.db.WithContext(ctx).
		Order("created_at ASC, staff_id ASC").
		Find(&staff).Error
	return staff, err
}

func (r *staffRepo) GetByID(ctx context.Context, id string) (*model.Staff, error) {
	var s model.Staff
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-duty/internal/model"
)

// HallRepository 考场名册数据访问接口
type HallRepository interface {
	List(ctx context.Context) ([]model.Hall, error)
	// ListBlocks 返回去重后按字母排序的考区
	ListBlocks(ctx context.Context) ([]string, error)
}

type hallRepo struct {
	db *gorm.DB
}

func NewHallRepo(db *gorm.DB) HallRepository {
	return &hallRepo{db: db}
}

func (r *hallRepo) List(ctx context.Context) ([]model.Hall, error) {
	var halls []model.Hall
	err := r.db.WithContext(ctx).
		Order("created_at ASC, hall_id ASC").
		Find(&halls).Error
	return halls, err
}

func (r *hallRepo) ListBlocks(ctx context.Context) ([]string, error) {
	var blocks []string
	err := r.db.WithContext(ctx).
		Model(&model.Hall{}).
		Where("block <> ''").
		Distinct().
		Order("block ASC").
		Pluck("block", &blocks).Error
	return blocks, err
}

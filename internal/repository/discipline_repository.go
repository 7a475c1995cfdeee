package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/questbank/internal/model"
)

// DisciplineRepository 学科仓库
type DisciplineRepository struct {
	db *gorm.DB
}

// NewDisciplineRepository 创建学科仓库
func NewDisciplineRepository(db *gorm.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// GetByID 根据 ID 获取学科，不存在时返回 (nil, nil)
func (r *DisciplineRepository) GetByID(ctx context.Context, id string) (*model.Discipline, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByCode 根据编码获取学科，不存在时返回 (nil, nil)
func (r *DisciplineRepository) GetByCode(ctx context.Context, code string) (*model.Discipline, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", code))
}

// GetByRank 根据序号获取学科，不存在时返回 (nil, nil)
func (r *DisciplineRepository) GetByRank(ctx context.Context, rank int) (*model.Discipline, error) {
	return r.first(r.db.WithContext(ctx).Where("rank = ?", rank))
}

func (r *DisciplineRepository) first(query *gorm.DB) (*model.Discipline, error) {
	var d model.Discipline
	err := query.First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List 列出学科
func (r *DisciplineRepository) List(ctx context.Context, activeOnly bool) ([]*model.Discipline, error) {
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var items []*model.Discipline
	err := query.Order("rank ASC, code ASC").Find(&items).Error
	return items, err
}

// Create 创建学科
func (r *DisciplineRepository) Create(ctx context.Context, d *model.Discipline) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return translateError(r.db.WithContext(ctx).Create(d).Error)
}

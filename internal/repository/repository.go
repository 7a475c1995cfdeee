package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB         *gorm.DB // 直接访问数据库
	Tag        *TagRepository
	Discipline *DisciplineRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		Tag:        NewTagRepository(db),
		Discipline: NewDisciplineRepository(db),
	}
}

// Transaction 在单个事务内执行 fn，fn 返回错误时回滚
// fn 收到的仓库集合绑定在该事务上
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

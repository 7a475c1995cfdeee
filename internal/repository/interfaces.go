// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"
	"errors"

	"github.com/ashwinyue/questbank/internal/model"
)

var (
	// ErrNotFound 更新目标不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束（并发分配编码时可能出现，调用方可重试）
	ErrDuplicate = errors.New("duplicate key")
	// ErrMalformedCode 存储中的编码无法解析出序号
	ErrMalformedCode = errors.New("malformed tag code")
)

// ========== TagStore 接口 ==========

// TagStore 标签数据访问接口
// Find 系列方法在记录不存在时返回 (nil, nil)
type TagStore interface {
	// 查询（单个）
	FindByID(ctx context.Context, id string) (*model.Tag, error)
	FindByName(ctx context.Context, name string, includeInactive bool) (*model.Tag, error)
	FindByCode(ctx context.Context, code string) (*model.Tag, error)

	// 查询（列表）
	ListRoots(ctx context.Context, activeOnly bool) ([]*model.Tag, error)
	ListChildren(ctx context.Context, parentID string, activeOnly bool) ([]*model.Tag, error)
	ListAll(ctx context.Context, activeOnly bool) ([]*model.Tag, error)
	ListInactive(ctx context.Context) ([]*model.Tag, error)
	ListByDepth(ctx context.Context, depth int, activeOnly bool) ([]*model.Tag, error)

	// 编码序号（同时统计启用和停用的标签）
	MaxChildSequence(ctx context.Context, parentID string) (int, error)
	MaxRootSequence(ctx context.Context, prefix string) (int, error)

	// 写入
	Insert(ctx context.Context, tag *model.Tag) (*model.Tag, error)
	UpdateName(ctx context.Context, id, name string) error
	SetStatus(ctx context.Context, id string, status model.TagStatus) error

	// 关联统计
	CountQuestionLinks(ctx context.Context, id string) (int64, error)
	CountActiveChildren(ctx context.Context, id string) (int64, error)
}

// ========== DisciplineStore 接口 ==========

// DisciplineStore 学科数据访问接口
type DisciplineStore interface {
	GetByID(ctx context.Context, id string) (*model.Discipline, error)
	GetByCode(ctx context.Context, code string) (*model.Discipline, error)
	GetByRank(ctx context.Context, rank int) (*model.Discipline, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Discipline, error)
	Create(ctx context.Context, d *model.Discipline) error
}

// 确保实现了接口
var (
	_ TagStore        = (*TagRepository)(nil)
	_ DisciplineStore = (*DisciplineRepository)(nil)
)

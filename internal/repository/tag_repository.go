package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/questbank/internal/model"
)

// TagRepository 标签仓库
type TagRepository struct {
	db *gorm.DB
}

// NewTagRepository 创建标签仓库
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// FindByID 根据 ID 获取标签
func (r *TagRepository) FindByID(ctx context.Context, id string) (*model.Tag, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByName 根据名称获取标签
func (r *TagRepository) FindByName(ctx context.Context, name string, includeInactive bool) (*model.Tag, error) {
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if !includeInactive {
		query = query.Where("status = ?", model.TagStatusActive)
	}
	return r.first(query)
}

// FindByCode 根据编码获取标签
func (r *TagRepository) FindByCode(ctx context.Context, code string) (*model.Tag, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", code))
}

func (r *TagRepository) first(query *gorm.DB) (*model.Tag, error) {
	var tag model.Tag
	err := query.First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListRoots 列出根标签
func (r *TagRepository) ListRoots(ctx context.Context, activeOnly bool) ([]*model.Tag, error) {
	query := r.db.WithContext(ctx).Where("parent_id IS NULL")
	return r.list(query, activeOnly, "rank ASC, code ASC")
}

// ListChildren 列出直接子标签
func (r *TagRepository) ListChildren(ctx context.Context, parentID string, activeOnly bool) ([]*model.Tag, error) {
	query := r.db.WithContext(ctx).Where("parent_id = ?", parentID)
	return r.list(query, activeOnly, "rank ASC, code ASC")
}

// ListAll 列出全部标签
func (r *TagRepository) ListAll(ctx context.Context, activeOnly bool) ([]*model.Tag, error) {
	return r.list(r.db.WithContext(ctx), activeOnly, "depth ASC, rank ASC, code ASC")
}

// ListInactive 列出全部停用标签
func (r *TagRepository) ListInactive(ctx context.Context) ([]*model.Tag, error) {
	var tags []*model.Tag
	err := r.db.WithContext(ctx).
		Where("status = ?", model.TagStatusInactive).
		Order("code ASC").
		Find(&tags).Error
	return tags, err
}

// ListByDepth 按层级列出标签
func (r *TagRepository) ListByDepth(ctx context.Context, depth int, activeOnly bool) ([]*model.Tag, error) {
	query := r.db.WithContext(ctx).Where("depth = ?", depth)
	return r.list(query, activeOnly, "rank ASC, code ASC")
}

func (r *TagRepository) list(query *gorm.DB, activeOnly bool, order string) ([]*model.Tag, error) {
	if activeOnly {
		query = query.Where("status = ?", model.TagStatusActive)
	}
	var tags []*model.Tag
	err := query.Order(order).Find(&tags).Error
	return tags, err
}

// MaxChildSequence 返回子标签编码末段的最大序号，没有子标签时返回 0
func (r *TagRepository) MaxChildSequence(ctx context.Context, parentID string) (int, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("parent_id = ?", parentID).
		Pluck("code", &codes).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load child codes: %w", err)
	}

	max := 0
	for _, code := range codes {
		idx := strings.LastIndex(code, ".")
		seq, err := strconv.Atoi(code[idx+1:])
		if idx < 0 || err != nil || seq <= 0 {
			return 0, fmt.Errorf("%w: %q under parent %s", ErrMalformedCode, code, parentID)
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// MaxRootSequence 返回 prefix 之后第一段编码的最大序号
// 统计所有以 prefix 开头的标签（包括子标签），这样无学科旧根标签的子编码 "1.1"
// 会占用学科序号为 1 的根编码，反之亦然
// prefix 为空时只统计首段为数字的编码
func (r *TagRepository) MaxRootSequence(ctx context.Context, prefix string) (int, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("code LIKE ?", prefix+"%").
		Pluck("code", &codes).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load root codes: %w", err)
	}

	max := 0
	for _, code := range codes {
		segment, _, _ := strings.Cut(strings.TrimPrefix(code, prefix), ".")
		seq, err := strconv.Atoi(segment)
		if err != nil || seq <= 0 {
			if prefix == "" {
				continue
			}
			return 0, fmt.Errorf("%w: %q with prefix %q", ErrMalformedCode, code, prefix)
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// Insert 创建标签
func (r *TagRepository) Insert(ctx context.Context, tag *model.Tag) (*model.Tag, error) {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, translateError(err)
	}
	return tag, nil
}

// UpdateName 更新名称
func (r *TagRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.update(ctx, id, "name", name)
}

// SetStatus 更新状态
func (r *TagRepository) SetStatus(ctx context.Context, id string, status model.TagStatus) error {
	return r.update(ctx, id, "status", status)
}

func (r *TagRepository) update(ctx context.Context, id, column string, value interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: tag %s", ErrNotFound, id)
	}
	return nil
}

// CountQuestionLinks 统计标签的题目关联数（不区分关联状态）
func (r *TagRepository) CountQuestionLinks(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.QuestionTag{}).
		Where("tag_id = ?", id).
		Count(&count).Error
	return count, err
}

// CountActiveChildren 统计启用的子标签数
func (r *TagRepository) CountActiveChildren(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("parent_id = ? AND status = ?", id, model.TagStatusActive).
		Count(&count).Error
	return count, err
}

// ========== 题目-标签关联 ==========

// GetTagsByQuestionID 获取题目的所有标签
func (r *TagRepository) GetTagsByQuestionID(ctx context.Context, questionID string) ([]*model.Tag, error) {
	var tags []*model.Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN question_tags ON question_tags.tag_id = tags.id").
		Where("question_tags.question_id = ? AND question_tags.active = ?", questionID, true).
		Order("tags.rank ASC, tags.code ASC").
		Find(&tags).Error
	return tags, err
}

// AddTagToQuestion 为题目添加标签
func (r *TagRepository) AddTagToQuestion(ctx context.Context, questionID, tagID string) error {
	link := &model.QuestionTag{
		ID:         uuid.New().String(),
		QuestionID: questionID,
		TagID:      tagID,
		Active:     true,
	}
	return translateError(r.db.WithContext(ctx).Create(link).Error)
}

// SetQuestionTagActive 切换关联自身的状态（停用题目时使用）
func (r *TagRepository) SetQuestionTagActive(ctx context.Context, questionID, tagID string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.QuestionTag{}).
		Where("question_id = ? AND tag_id = ?", questionID, tagID).
		Update("active", active).Error
}

// SetQuestionTags 设置题目的标签（先删除后添加）
func (r *TagRepository) SetQuestionTags(ctx context.Context, questionID string, tagIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 删除现有的标签关联
		if err := tx.Where("question_id = ?", questionID).Delete(&model.QuestionTag{}).Error; err != nil {
			return fmt.Errorf("failed to remove existing tags: %w", err)
		}

		// 添加新的标签关联
		for _, tagID := range tagIDs {
			link := &model.QuestionTag{
				ID:         uuid.New().String(),
				QuestionID: questionID,
				TagID:      tagID,
				Active:     true,
			}
			if err := tx.Create(link).Error; err != nil {
				return fmt.Errorf("failed to add tag %s: %w", tagID, translateError(err))
			}
		}
		return nil
	})
}

// translateError 将驱动层唯一约束错误统一为 ErrDuplicate
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

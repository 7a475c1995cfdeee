// Package testutil 提供测试辅助工具
package testutil

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ashwinyue/questbank/internal/model"
)

// NewTestDB 创建迁移完成的内存 sqlite 数据库
// 单连接保证同一测试内看到同一个内存库
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels...))
	return db
}

// CreateDiscipline 创建测试学科
func CreateDiscipline(t *testing.T, db *gorm.DB, code string, rank int) *model.Discipline {
	t.Helper()

	d := &model.Discipline{
		ID:     uuid.New().String(),
		Code:   code,
		Name:   code,
		Rank:   rank,
		Active: true,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

// CreateTag 直接写入一条标签记录，绕过业务校验（用于构造异常数据）
func CreateTag(t *testing.T, db *gorm.DB, name, code string, parent *model.Tag, status model.TagStatus) *model.Tag {
	t.Helper()

	tag := &model.Tag{
		ID:     uuid.New().String(),
		Name:   name,
		Code:   code,
		Depth:  1,
		Status: status,
	}
	if parent != nil {
		tag.ParentID = &parent.ID
		tag.Depth = parent.Depth + 1
		tag.DisciplineID = parent.DisciplineID
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// LinkQuestion 创建题目-标签关联
func LinkQuestion(t *testing.T, db *gorm.DB, tagID string, active bool) string {
	t.Helper()

	questionID := uuid.New().String()
	link := &model.QuestionTag{
		ID:         uuid.New().String(),
		QuestionID: questionID,
		TagID:      tagID,
		Active:     active,
	}
	require.NoError(t, db.Create(link).Error)
	return questionID
}

// SetParent 直接改写父标签引用（用于构造环）
func SetParent(t *testing.T, db *gorm.DB, tagID, parentID string) {
	t.Helper()

	err := db.Model(&model.Tag{}).Where("id = ?", tagID).Update("parent_id", parentID).Error
	require.NoError(t, err, fmt.Sprintf("set parent of %s", tagID))
}

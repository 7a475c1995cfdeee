package model

import (
	"strings"
	"time"
)

// TagStatus 标签生命周期状态
type TagStatus string

const (
	TagStatusActive   TagStatus = "active"
	TagStatusInactive TagStatus = "inactive"
)

// Namespace 标签命名空间，决定根编码前缀
type Namespace string

const (
	// NamespaceContent 内容标签，根编码为 "{学科序号}.{n}"
	NamespaceContent Namespace = "CONTENT"
	// NamespaceExamSource 考试来源，根编码为 "V{n}"
	NamespaceExamSource Namespace = "EXAM_SOURCE"
	// NamespaceGradeLevel 年级，根编码为 "N{n}"
	NamespaceGradeLevel Namespace = "GRADE_LEVEL"
)

const (
	ExamSourcePrefix = "V"
	GradeLevelPrefix = "N"
)

// Valid 判断命名空间是否合法
func (n Namespace) Valid() bool {
	switch n {
	case NamespaceContent, NamespaceExamSource, NamespaceGradeLevel:
		return true
	}
	return false
}

// RankOffset 平铺列表中命名空间的排序偏移
func (n Namespace) RankOffset() int {
	switch n {
	case NamespaceExamSource:
		return 1000
	case NamespaceGradeLevel:
		return 2000
	default:
		return 0
	}
}

// NamespaceOfCode 根据编码首字符推断命名空间
func NamespaceOfCode(code string) Namespace {
	switch {
	case strings.HasPrefix(code, ExamSourcePrefix):
		return NamespaceExamSource
	case strings.HasPrefix(code, GradeLevelPrefix):
		return NamespaceGradeLevel
	default:
		return NamespaceContent
	}
}

// Tag 分类标签（层级结构）
type Tag struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string    `gorm:"type:varchar(200);not null;index" json:"name"`
	Code         string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Depth        int       `gorm:"not null" json:"depth"`
	ParentID     *string   `gorm:"type:varchar(36);index" json:"parent_id,omitempty"`
	DisciplineID *string   `gorm:"type:varchar(36);index" json:"discipline_id,omitempty"`
	Rank         int       `gorm:"not null;default:0" json:"rank"`
	Status       TagStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}

// IsActive 是否启用
func (t *Tag) IsActive() bool {
	return t.Status == TagStatusActive
}

// IsRoot 是否为根标签
func (t *Tag) IsRoot() bool {
	return t.ParentID == nil
}

// Namespace 标签所属命名空间
func (t *Tag) Namespace() Namespace {
	return NamespaceOfCode(t.Code)
}

// QuestionTag 题目-标签关联表
type QuestionTag struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	QuestionID string    `gorm:"type:varchar(36);not null;index:idx_question_tag;index:idx_question_tag_unique,unique" json:"question_id"`
	TagID      string    `gorm:"type:varchar(36);not null;index:idx_question_tag_unique,unique" json:"tag_id"`
	Active     bool      `gorm:"not null" json:"active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (QuestionTag) TableName() string {
	return "question_tags"
}

package model

import "time"

// Discipline 学科，内容标签根编码以 Rank 作为前缀，Rank 唯一
type Discipline struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code        string    `gorm:"type:varchar(10);not null;uniqueIndex" json:"code"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Color       string    `gorm:"type:varchar(7);default:'#3498db'" json:"color"`
	Rank        int       `gorm:"not null;uniqueIndex" json:"rank"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Discipline) TableName() string {
	return "disciplines"
}

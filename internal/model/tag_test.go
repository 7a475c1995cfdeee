package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceOfCode(t *testing.T) {
	tests := []struct {
		code string
		want Namespace
	}{
		{"1.2.3", NamespaceContent},
		{"3", NamespaceContent},
		{"V1", NamespaceExamSource},
		{"N12", NamespaceGradeLevel},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, NamespaceOfCode(tt.code))
		})
	}
}

func TestNamespace(t *testing.T) {
	assert.True(t, NamespaceContent.Valid())
	assert.False(t, Namespace("OTHER").Valid())

	assert.Equal(t, 0, NamespaceContent.RankOffset())
	assert.Equal(t, 1000, NamespaceExamSource.RankOffset())
	assert.Equal(t, 2000, NamespaceGradeLevel.RankOffset())
}

func TestTag_State(t *testing.T) {
	parent := "p1"
	tag := &Tag{Code: "V3", Status: TagStatusActive}

	assert.True(t, tag.IsActive())
	assert.True(t, tag.IsRoot())
	assert.Equal(t, NamespaceExamSource, tag.Namespace())

	tag.Status = TagStatusInactive
	tag.ParentID = &parent
	assert.False(t, tag.IsActive())
	assert.False(t, tag.IsRoot())
}

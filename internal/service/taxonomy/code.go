package taxonomy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
)

// Allocator 计算新标签的层级编码
// 只计算不落库，持久化由 Manager 在同一事务中完成
type Allocator struct {
	tags   repository.TagStore
	logger *zap.Logger
}

// NewAllocator 创建编码分配器
func NewAllocator(tags repository.TagStore, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{tags: tags, logger: logger}
}

// AllocateChildCode 返回 parent 下一个子编码
// 序号取启用和停用子标签中的最大值加一，停用后的编码不会被复用
func (a *Allocator) AllocateChildCode(ctx context.Context, parent *model.Tag) (string, error) {
	if parent == nil {
		return "", fmt.Errorf("%w: parent is required", ErrAllocation)
	}

	seq, err := a.tags.MaxChildSequence(ctx, parent.ID)
	if err != nil {
		return "", fmt.Errorf("%w: children of %s: %w", ErrAllocation, parent.Code, err)
	}
	// 无学科根标签 "2" 的子编码与学科 2 的根编码共用 "2." 前缀
	taken, err := a.tags.MaxRootSequence(ctx, parent.Code+".")
	if err != nil {
		return "", fmt.Errorf("%w: codes under %s: %w", ErrAllocation, parent.Code, err)
	}
	return fmt.Sprintf("%s.%d", parent.Code, max(seq, taken)+1), nil
}

// AllocateRootCode 返回命名空间下一个根编码
// CONTENT 以学科序号为前缀，EXAM_SOURCE/GRADE_LEVEL 分别以 V/N 为前缀
func (a *Allocator) AllocateRootCode(ctx context.Context, ns model.Namespace, discipline *model.Discipline) (string, error) {
	prefix, err := a.rootPrefix(ns, discipline)
	if err != nil {
		return "", err
	}

	max, err := a.tags.MaxRootSequence(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("%w: roots with prefix %q: %w", ErrAllocation, prefix, err)
	}
	return fmt.Sprintf("%s%d", prefix, max+1), nil
}

func (a *Allocator) rootPrefix(ns model.Namespace, discipline *model.Discipline) (string, error) {
	switch ns {
	case model.NamespaceContent:
		if discipline == nil {
			// 旧数据路径：没有学科时退化为纯数字序号
			a.logger.Warn("allocating content root code without discipline, falling back to undisciplined sequence")
			return "", nil
		}
		return fmt.Sprintf("%d.", discipline.Rank), nil
	case model.NamespaceExamSource:
		return model.ExamSourcePrefix, nil
	case model.NamespaceGradeLevel:
		return model.GradeLevelPrefix, nil
	default:
		return "", fmt.Errorf("%w: unknown namespace %q", ErrAllocation, ns)
	}
}

// CanHaveChildren 考试来源和年级标签只能作为叶子
func CanHaveChildren(code string) bool {
	return !strings.HasPrefix(code, model.ExamSourcePrefix) &&
		!strings.HasPrefix(code, model.GradeLevelPrefix)
}

// SequenceOf 返回编码最后一段的序号，无法解析时返回 0
func SequenceOf(code string) int {
	end := len(code)
	start := end
	for start > 0 && code[start-1] >= '0' && code[start-1] <= '9' {
		start--
	}
	seq, err := strconv.Atoi(code[start:end])
	if err != nil {
		return 0
	}
	return seq
}

// CompareCodes 按自然顺序比较编码，数字段按数值比较（"1.9" < "1.10"）
func CompareCodes(a, b string) int {
	for a != "" && b != "" {
		ta, ra := nextToken(a)
		tb, rb := nextToken(b)
		if c := compareToken(ta, tb); c != 0 {
			return c
		}
		a, b = ra, rb
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func nextToken(s string) (string, string) {
	digit := unicode.IsDigit(rune(s[0]))
	i := 1
	for i < len(s) && unicode.IsDigit(rune(s[i])) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareToken(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

package taxonomy

import (
	"errors"
	"fmt"

	"github.com/ashwinyue/questbank/internal/repository"
)

// 错误分类，调用方通过 errors.Is 判断
var (
	// ErrValidation 输入不合法（空名称、内容根标签缺少学科等）
	ErrValidation = errors.New("validation error")
	// ErrConflict 名称重复，或并发分配编码时违反唯一约束
	ErrConflict = errors.New("conflict")
	// ErrNotFound 标签、父标签或学科不存在，或重新启用的目标并非停用状态
	ErrNotFound = errors.New("not found")
	// ErrConstraint 违反层级规则
	ErrConstraint = errors.New("constraint violation")
	// ErrAllocation 编码计算失败
	ErrAllocation = errors.New("code allocation failed")
)

// KindOf 返回错误分类名称，未分类的错误返回 "internal"
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConstraint):
		return "constraint"
	case errors.Is(err, ErrAllocation):
		return "allocation"
	default:
		return "internal"
	}
}

// IsRetryable 并发创建导致的唯一约束冲突可以在新事务中重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) && errors.Is(err, repository.ErrDuplicate)
}

// asConflict 将存储层唯一约束错误归类为 ErrConflict
func asConflict(err error) error {
	if err == nil || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

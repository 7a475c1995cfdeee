package taxonomy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
)

// NameScope 名称唯一性的检查范围
type NameScope string

const (
	// NameScopeAll 名称在所有标签中唯一（包括已停用的）
	NameScopeAll NameScope = "all"
	// NameScopeActive 只与启用的标签比较，停用标签的名称可以复用
	NameScopeActive NameScope = "active"
)

// DeactivationGuard 停用前需要通过的检查
type DeactivationGuard int

const (
	// GuardChildren 存在启用的子标签时拒绝
	GuardChildren DeactivationGuard = iota
	// GuardChildrenAndQuestions 额外要求没有任何题目关联
	GuardChildrenAndQuestions
)

// CreateCommand 创建标签参数
type CreateCommand struct {
	Name         string
	ParentID     *string
	Namespace    model.Namespace
	DisciplineID *string
}

// RenameCommand 重命名参数
type RenameCommand struct {
	NewName string
}

// ManagerOptions 生命周期规则开关
type ManagerOptions struct {
	NameScope         NameScope
	RequireDiscipline bool
}

// Manager 负责标签的创建、重命名、停用和重新启用
// 所有方法应在同一个事务绑定的存储上调用
type Manager struct {
	tags        repository.TagStore
	disciplines repository.DisciplineStore
	allocator   *Allocator
	opts        ManagerOptions
	logger      *zap.Logger
}

// NewManager 创建生命周期管理器
func NewManager(tags repository.TagStore, disciplines repository.DisciplineStore, opts ManagerOptions, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NameScope == "" {
		opts.NameScope = NameScopeAll
	}
	return &Manager{
		tags:        tags,
		disciplines: disciplines,
		allocator:   NewAllocator(tags, logger),
		opts:        opts,
		logger:      logger,
	}
}

// NormalizeName 去掉首尾空白并转为大写
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Create 校验并创建标签，编码和层级由系统分配
func (m *Manager) Create(ctx context.Context, cmd CreateCommand) (*model.Tag, error) {
	name := NormalizeName(cmd.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if !cmd.Namespace.Valid() {
		return nil, fmt.Errorf("%w: unknown namespace %q", ErrValidation, cmd.Namespace)
	}
	if err := m.ensureNameAvailable(ctx, name, ""); err != nil {
		return nil, err
	}

	tag := &model.Tag{Name: name, Status: model.TagStatusActive}

	var err error
	if parentID := deref(cmd.ParentID); parentID != "" {
		err = m.placeUnderParent(ctx, tag, parentID, cmd)
	} else {
		err = m.placeAsRoot(ctx, tag, cmd)
	}
	if err != nil {
		return nil, err
	}

	created, err := m.tags.Insert(ctx, tag)
	if err != nil {
		return nil, asConflict(fmt.Errorf("failed to insert tag %s: %w", tag.Code, err))
	}
	return created, nil
}

func (m *Manager) placeUnderParent(ctx context.Context, tag *model.Tag, parentID string, cmd CreateCommand) error {
	parent, err := m.tags.FindByID(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to load parent: %w", err)
	}
	if parent == nil {
		return fmt.Errorf("%w: parent tag %s", ErrNotFound, parentID)
	}
	if !CanHaveChildren(parent.Code) {
		return fmt.Errorf("%w: tag %s (%s) cannot have children", ErrConstraint, parent.Name, parent.Code)
	}
	if parent.Namespace() != cmd.Namespace {
		return fmt.Errorf("%w: parent %s belongs to %s, not %s", ErrConstraint, parent.Code, parent.Namespace(), cmd.Namespace)
	}
	if !parent.IsActive() {
		return fmt.Errorf("%w: parent %s is inactive", ErrConstraint, parent.Code)
	}

	code, err := m.allocator.AllocateChildCode(ctx, parent)
	if err != nil {
		return err
	}

	tag.Code = code
	tag.ParentID = &parent.ID
	tag.Depth = parent.Depth + 1
	tag.Rank = SequenceOf(code)
	tag.DisciplineID = parent.DisciplineID
	if id := deref(cmd.DisciplineID); id != "" {
		d, err := m.loadDiscipline(ctx, id)
		if err != nil {
			return err
		}
		tag.DisciplineID = &d.ID
	}
	return nil
}

func (m *Manager) placeAsRoot(ctx context.Context, tag *model.Tag, cmd CreateCommand) error {
	var discipline *model.Discipline
	id := deref(cmd.DisciplineID)
	switch {
	case cmd.Namespace != model.NamespaceContent && id != "":
		return fmt.Errorf("%w: %s tags do not belong to a discipline", ErrValidation, cmd.Namespace)
	case cmd.Namespace != model.NamespaceContent:
	case id != "":
		d, err := m.loadDiscipline(ctx, id)
		if err != nil {
			return err
		}
		discipline = d
	case m.opts.RequireDiscipline:
		return fmt.Errorf("%w: content root tags require a discipline", ErrValidation)
	}

	code, err := m.allocator.AllocateRootCode(ctx, cmd.Namespace, discipline)
	if err != nil {
		return err
	}

	tag.Code = code
	tag.Depth = 1
	tag.Rank = cmd.Namespace.RankOffset() + SequenceOf(code)
	if discipline != nil {
		tag.DisciplineID = &discipline.ID
	}
	return nil
}

func (m *Manager) loadDiscipline(ctx context.Context, id string) (*model.Discipline, error) {
	d, err := m.disciplines.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: discipline %s: %w", ErrAllocation, id, err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: discipline %s", ErrNotFound, id)
	}
	return d, nil
}

// Rename 修改标签名称，编码、层级和状态保持不变
func (m *Manager) Rename(ctx context.Context, id string, cmd RenameCommand) (*model.Tag, error) {
	tag, err := m.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	name := NormalizeName(cmd.NewName)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if name == tag.Name {
		return tag, nil
	}
	if err := m.ensureNameAvailable(ctx, name, tag.ID); err != nil {
		return nil, err
	}

	if err := m.tags.UpdateName(ctx, tag.ID, name); err != nil {
		return nil, fmt.Errorf("failed to rename tag %s: %w", tag.Code, err)
	}
	tag.Name = name
	return tag, nil
}

// Deactivate 按 guard 检查后停用标签
func (m *Manager) Deactivate(ctx context.Context, id string, guard DeactivationGuard) (bool, error) {
	tag, err := m.mustFind(ctx, id)
	if err != nil {
		return false, err
	}
	if !tag.IsActive() {
		return true, nil
	}

	children, err := m.tags.CountActiveChildren(ctx, tag.ID)
	if err != nil {
		return false, fmt.Errorf("failed to count children: %w", err)
	}
	if children > 0 {
		return false, fmt.Errorf("%w: tag %s has %d active children", ErrConstraint, tag.Code, children)
	}

	if guard == GuardChildrenAndQuestions {
		links, err := m.tags.CountQuestionLinks(ctx, tag.ID)
		if err != nil {
			return false, fmt.Errorf("failed to count question links: %w", err)
		}
		if links > 0 {
			return false, fmt.Errorf("%w: tag %s is linked to %d questions", ErrConstraint, tag.Code, links)
		}
	}

	if err := m.tags.SetStatus(ctx, tag.ID, model.TagStatusInactive); err != nil {
		return false, fmt.Errorf("failed to deactivate tag %s: %w", tag.Code, err)
	}
	return true, nil
}

// Reactivate 重新启用停用的标签，父标签必须处于启用状态
func (m *Manager) Reactivate(ctx context.Context, id string) (bool, error) {
	tag, err := m.tags.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load tag: %w", err)
	}
	if tag == nil || tag.IsActive() {
		return false, fmt.Errorf("%w: no inactive tag %s", ErrNotFound, id)
	}

	if parentID := deref(tag.ParentID); parentID != "" {
		parent, err := m.tags.FindByID(ctx, parentID)
		if err != nil {
			return false, fmt.Errorf("failed to load parent: %w", err)
		}
		if parent == nil || !parent.IsActive() {
			return false, fmt.Errorf("%w: parent of %s is not active", ErrConstraint, tag.Code)
		}
	}

	// nameScope=active 时停用期间名称可能已被新标签占用
	clash, err := m.tags.FindByName(ctx, tag.Name, false)
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	if clash != nil && clash.ID != tag.ID {
		return false, fmt.Errorf("%w: tag name %q already used by %s", ErrConflict, tag.Name, clash.Code)
	}

	if err := m.tags.SetStatus(ctx, tag.ID, model.TagStatusActive); err != nil {
		return false, fmt.Errorf("failed to reactivate tag %s: %w", tag.Code, err)
	}
	return true, nil
}

// CanHaveChildren 标签不存在时也返回 true
func (m *Manager) CanHaveChildren(ctx context.Context, id string) (bool, error) {
	tag, err := m.tags.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load tag: %w", err)
	}
	if tag == nil {
		return true, nil
	}
	return CanHaveChildren(tag.Code), nil
}

func (m *Manager) mustFind(ctx context.Context, id string) (*model.Tag, error) {
	tag, err := m.tags.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	if tag == nil {
		return nil, fmt.Errorf("%w: tag %s", ErrNotFound, id)
	}
	return tag, nil
}

func (m *Manager) ensureNameAvailable(ctx context.Context, name, exceptID string) error {
	existing, err := m.tags.FindByName(ctx, name, m.opts.NameScope == NameScopeAll)
	if err != nil {
		return fmt.Errorf("failed to check name: %w", err)
	}
	if existing != nil && existing.ID != exceptID {
		return fmt.Errorf("%w: tag name %q already used by %s", ErrConflict, name, existing.Code)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

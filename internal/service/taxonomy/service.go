// Package taxonomy 层级分类标签引擎：编码分配、生命周期、树和路径
package taxonomy

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ashwinyue/questbank/internal/config"
	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/service/event"
)

// Options 服务配置
type Options struct {
	NameScope         NameScope
	StrictInactivate  bool
	RequireDiscipline bool
	PathSeparator     string
}

// OptionsFromConfig 从配置构造服务选项
func OptionsFromConfig(cfg config.TaxonomyConfig) Options {
	return Options{
		NameScope:         NameScope(cfg.NameScope),
		StrictInactivate:  cfg.StrictInactivate,
		RequireDiscipline: cfg.RequireDiscipline,
		PathSeparator:     cfg.PathSeparator,
	}
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		NameScope:         NameScopeAll,
		RequireDiscipline: true,
		PathSeparator:     " > ",
	}
}

// Service 分类标签服务
// 每个写操作在一个事务内完成，出错时整体回滚
type Service struct {
	repo   *repository.Repositories
	locker Locker
	opts   Options
	logger *zap.Logger
	events event.Publisher
	group  singleflight.Group
}

// NewService 创建分类标签服务，locker 为 nil 时使用进程内锁
func NewService(repo *repository.Repositories, locker Locker, opts Options, logger *zap.Logger) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NameScope == "" {
		opts.NameScope = NameScopeAll
	}
	if opts.PathSeparator == "" {
		opts.PathSeparator = " > "
	}
	return &Service{repo: repo, locker: locker, opts: opts, logger: logger}
}

// WithPublisher 设置变更事件发布者，事务提交后发布
func (s *Service) WithPublisher(p event.Publisher) *Service {
	s.events = p
	return s
}

func (s *Service) publish(ctx context.Context, t event.EventType, tag *model.Tag) {
	if s.events == nil || tag == nil {
		return
	}
	if err := s.events.Publish(ctx, event.New(t, tag.ID, tag.Code, tag.Name)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", string(t)), zap.Error(err))
	}
}

func (s *Service) manager(r *repository.Repositories) *Manager {
	return NewManager(r.Tag, r.Discipline, ManagerOptions{
		NameScope:         s.opts.NameScope,
		RequireDiscipline: s.opts.RequireDiscipline,
	}, s.logger)
}

// read 在只读事务中执行 fn，保证多次查询看到同一快照
func (s *Service) read(ctx context.Context, fn func(c *Composer, r *repository.Repositories) error) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repositories) error {
		return fn(NewComposer(tx.Tag), tx)
	})
}

// TagDetail 标签详情
type TagDetail struct {
	*model.Tag
	Path            string `json:"path"`
	QuestionCount   int64  `json:"question_count"`
	CanHaveChildren bool   `json:"can_have_children"`
}

// TagWithPath 平铺列表项
type TagWithPath struct {
	*model.Tag
	Path string `json:"path"`
}

// ========== 写操作 ==========

// CreateContentTag 创建内容标签，parentID 为空时创建学科下的根标签
func (s *Service) CreateContentTag(ctx context.Context, name string, parentID, disciplineID *string) (*model.Tag, error) {
	return s.create(ctx, CreateCommand{
		Name:         name,
		ParentID:     parentID,
		Namespace:    model.NamespaceContent,
		DisciplineID: disciplineID,
	})
}

// CreateExamSourceTag 创建考试来源标签（V 编码）
// 考试来源只能作为叶子，parentID 非空时总是返回 ErrConstraint
func (s *Service) CreateExamSourceTag(ctx context.Context, name string, parentID *string) (*model.Tag, error) {
	return s.create(ctx, CreateCommand{Name: name, ParentID: parentID, Namespace: model.NamespaceExamSource})
}

// CreateGradeLevelTag 创建年级标签（N 编码），parentID 规则同考试来源
func (s *Service) CreateGradeLevelTag(ctx context.Context, name string, parentID *string) (*model.Tag, error) {
	return s.create(ctx, CreateCommand{Name: name, ParentID: parentID, Namespace: model.NamespaceGradeLevel})
}

func (s *Service) create(ctx context.Context, cmd CreateCommand) (*model.Tag, error) {
	unlock, err := s.locker.Lock(ctx, allocationKey(cmd))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	defer unlock()

	var tag *model.Tag
	err = s.repo.Transaction(ctx, func(tx *repository.Repositories) error {
		created, err := s.manager(tx).Create(ctx, cmd)
		if err != nil {
			return err
		}
		tag = created
		return nil
	})
	if err != nil {
		err = asConflict(err)
		s.logger.Debug("create tag rejected",
			zap.String("name", cmd.Name),
			zap.String("namespace", string(cmd.Namespace)),
			zap.String("kind", KindOf(err)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("tag created",
		zap.String("id", tag.ID),
		zap.String("code", tag.Code),
		zap.String("name", tag.Name))
	s.publish(ctx, event.EventTagCreated, tag)
	return tag, nil
}

// allocationKey 子标签按父标签加锁，根标签按命名空间加锁
func allocationKey(cmd CreateCommand) string {
	if id := deref(cmd.ParentID); id != "" {
		return "parent:" + id
	}
	return "root:" + string(cmd.Namespace)
}

// RenameTag 重命名标签
func (s *Service) RenameTag(ctx context.Context, id, newName string) (*model.Tag, error) {
	var tag *model.Tag
	err := s.repo.Transaction(ctx, func(tx *repository.Repositories) error {
		renamed, err := s.manager(tx).Rename(ctx, id, RenameCommand{NewName: newName})
		if err != nil {
			return err
		}
		tag = renamed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag renamed", zap.String("id", tag.ID), zap.String("name", tag.Name))
	s.publish(ctx, event.EventTagRenamed, tag)
	return tag, nil
}

// InactivateTag 停用标签，存在启用的子标签时拒绝
func (s *Service) InactivateTag(ctx context.Context, id string) (bool, error) {
	guard := GuardChildren
	if s.opts.StrictInactivate {
		guard = GuardChildrenAndQuestions
	}
	return s.deactivate(ctx, id, guard, event.EventTagInactivated)
}

// DeleteTag 软删除标签，额外要求没有题目关联
func (s *Service) DeleteTag(ctx context.Context, id string) (bool, error) {
	return s.deactivate(ctx, id, GuardChildrenAndQuestions, event.EventTagDeleted)
}

func (s *Service) deactivate(ctx context.Context, id string, guard DeactivationGuard, evt event.EventType) (bool, error) {
	ok, tag, changed, err := s.toggle(ctx, id, func(m *Manager) (bool, error) {
		return m.Deactivate(ctx, id, guard)
	})
	if err != nil {
		return false, err
	}
	if !changed {
		return ok, nil
	}

	s.logger.Info("tag deactivated", zap.String("id", id), zap.Int("guard", int(guard)))
	s.publish(ctx, evt, tag)
	return ok, nil
}

// ReactivateTag 重新启用停用的标签
func (s *Service) ReactivateTag(ctx context.Context, id string) (bool, error) {
	ok, tag, _, err := s.toggle(ctx, id, func(m *Manager) (bool, error) {
		return m.Reactivate(ctx, id)
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("tag reactivated", zap.String("id", id))
	s.publish(ctx, event.EventTagReactivated, tag)
	return ok, nil
}

// toggle 在事务内切换状态并读回标签，changed 表示状态确实发生了变化
func (s *Service) toggle(ctx context.Context, id string, fn func(m *Manager) (bool, error)) (bool, *model.Tag, bool, error) {
	var (
		ok      bool
		tag     *model.Tag
		changed bool
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repositories) error {
		before, err := tx.Tag.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load tag: %w", err)
		}
		if ok, err = fn(s.manager(tx)); err != nil {
			return err
		}
		if tag, err = tx.Tag.FindByID(ctx, id); err != nil {
			return err
		}
		changed = before != nil && tag != nil && before.Status != tag.Status
		return nil
	})
	if err != nil {
		return false, nil, false, err
	}
	return ok, tag, changed, nil
}

// SetQuestionTags 替换题目的标签集合，所有标签必须存在且处于启用状态
func (s *Service) SetQuestionTags(ctx context.Context, questionID string, tagIDs []string) error {
	if strings.TrimSpace(questionID) == "" {
		return fmt.Errorf("%w: question id must not be empty", ErrValidation)
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repositories) error {
		seen := make(map[string]bool, len(tagIDs))
		ids := make([]string, 0, len(tagIDs))
		for _, id := range tagIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			tag, err := tx.Tag.FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load tag: %w", err)
			}
			if tag == nil {
				return fmt.Errorf("%w: tag %s", ErrNotFound, id)
			}
			if !tag.IsActive() {
				return fmt.Errorf("%w: tag %s is inactive", ErrConstraint, tag.Code)
			}
			ids = append(ids, id)
		}
		return tx.Tag.SetQuestionTags(ctx, questionID, ids)
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		evt := event.New(event.EventQuestionTagsSet, "", "", "")
		evt.Metadata = map[string]string{
			"question_id": questionID,
			"tag_ids":     strings.Join(tagIDs, ","),
		}
		if err := s.events.Publish(ctx, evt); err != nil {
			s.logger.Warn("failed to publish event", zap.String("event_type", string(evt.EventType)), zap.Error(err))
		}
	}
	return nil
}

// ========== 读操作 ==========

// CanCreateChildUnder 标签不存在时返回 true
func (s *Service) CanCreateChildUnder(ctx context.Context, id string) (bool, error) {
	return s.manager(s.repo).CanHaveChildren(ctx, id)
}

// GetContentTree 内容标签树
func (s *Service) GetContentTree(ctx context.Context) ([]*TreeNode, error) {
	return s.tree(ctx, "content", func(ctx context.Context, c *Composer) ([]*TreeNode, error) {
		return c.BuildContentTree(ctx)
	})
}

// GetFullTree 所有命名空间的标签树
func (s *Service) GetFullTree(ctx context.Context) ([]*TreeNode, error) {
	return s.tree(ctx, "full", func(ctx context.Context, c *Composer) ([]*TreeNode, error) {
		return c.BuildFullTree(ctx)
	})
}

// GetTreeByRootName 指定根标签的子树
func (s *Service) GetTreeByRootName(ctx context.Context, name string) ([]*TreeNode, error) {
	return s.tree(ctx, "root:"+NormalizeName(name), func(ctx context.Context, c *Composer) ([]*TreeNode, error) {
		return c.BuildTreeByRootName(ctx, name)
	})
}

// tree 合并并发的相同读取，返回的树在调用方之间共享，不可修改
// 共享的读取不受任一调用方取消的影响，每个调用方只等待自己的 ctx
func (s *Service) tree(ctx context.Context, key string, build func(ctx context.Context, c *Composer) ([]*TreeNode, error)) ([]*TreeNode, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		var nodes []*TreeNode
		err := s.read(shared, func(c *Composer, _ *repository.Repositories) error {
			var err error
			nodes, err = build(shared, c)
			return err
		})
		return nodes, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*TreeNode), nil
	}
}

// GetInactiveFlat 停用标签平铺列表
func (s *Service) GetInactiveFlat(ctx context.Context) ([]*model.Tag, error) {
	return NewComposer(s.repo.Tag).ListInactive(ctx)
}

// ResolveDisplayPath 返回 "根 > ... > 标签" 形式的路径
func (s *Service) ResolveDisplayPath(ctx context.Context, id string) (string, error) {
	var path string
	err := s.read(ctx, func(c *Composer, _ *repository.Repositories) error {
		chain, err := c.ResolvePath(ctx, id)
		if err != nil {
			return err
		}
		path = JoinNames(chain, s.opts.PathSeparator)
		return nil
	})
	return path, err
}

// ResolvePath 返回从根到标签的标签链
func (s *Service) ResolvePath(ctx context.Context, id string) ([]*model.Tag, error) {
	var chain []*model.Tag
	err := s.read(ctx, func(c *Composer, _ *repository.Repositories) error {
		var err error
		chain, err = c.ResolvePath(ctx, id)
		return err
	})
	return chain, err
}

// GetTag 标签详情，包含路径和关联题目数
func (s *Service) GetTag(ctx context.Context, id string) (*TagDetail, error) {
	var detail *TagDetail
	err := s.read(ctx, func(c *Composer, tx *repository.Repositories) error {
		chain, err := c.ResolvePath(ctx, id)
		if err != nil {
			return err
		}
		tag := chain[len(chain)-1]

		count, err := tx.Tag.CountQuestionLinks(ctx, tag.ID)
		if err != nil {
			return fmt.Errorf("failed to count question links: %w", err)
		}

		detail = &TagDetail{
			Tag:             tag,
			Path:            JoinNames(chain, s.opts.PathSeparator),
			QuestionCount:   count,
			CanHaveChildren: CanHaveChildren(tag.Code),
		}
		return nil
	})
	return detail, err
}

// GetTagByCode 按编码查询标签
func (s *Service) GetTagByCode(ctx context.Context, code string) (*model.Tag, error) {
	tag, err := s.repo.Tag.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	if tag == nil {
		return nil, fmt.Errorf("%w: tag code %s", ErrNotFound, code)
	}
	return tag, nil
}

// ListChildren 启用的直接子标签
func (s *Service) ListChildren(ctx context.Context, id string) ([]*model.Tag, error) {
	var children []*model.Tag
	err := s.read(ctx, func(_ *Composer, tx *repository.Repositories) error {
		parent, err := tx.Tag.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load tag: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("%w: tag %s", ErrNotFound, id)
		}
		children, err = tx.Tag.ListChildren(ctx, parent.ID, true)
		return err
	})
	return children, err
}

// ListChildrenByCode 按父编码查询启用的直接子标签
func (s *Service) ListChildrenByCode(ctx context.Context, code string) ([]*model.Tag, error) {
	parent, err := s.GetTagByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.ListChildren(ctx, parent.ID)
}

// ListExamSources 启用的考试来源标签
func (s *Service) ListExamSources(ctx context.Context) ([]*model.Tag, error) {
	return s.listRootsWithPrefix(ctx, model.ExamSourcePrefix)
}

// ListGradeLevels 启用的年级标签
func (s *Service) ListGradeLevels(ctx context.Context) ([]*model.Tag, error) {
	return s.listRootsWithPrefix(ctx, model.GradeLevelPrefix)
}

func (s *Service) listRootsWithPrefix(ctx context.Context, prefix string) ([]*model.Tag, error) {
	roots, err := s.repo.Tag.ListRoots(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}

	tags := make([]*model.Tag, 0, len(roots))
	for _, r := range roots {
		if strings.HasPrefix(r.Code, prefix) {
			tags = append(tags, r)
		}
	}
	return tags, nil
}

// ListActiveWithPaths 启用标签平铺列表，depth > 0 时只返回该层级
func (s *Service) ListActiveWithPaths(ctx context.Context, depth int) ([]*TagWithPath, error) {
	var result []*TagWithPath
	err := s.read(ctx, func(c *Composer, tx *repository.Repositories) error {
		var (
			tags []*model.Tag
			err  error
		)
		if depth > 0 {
			tags, err = tx.Tag.ListByDepth(ctx, depth, true)
		} else {
			tags, err = tx.Tag.ListAll(ctx, true)
		}
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}

		paths, err := c.DisplayPaths(ctx, s.opts.PathSeparator)
		if err != nil {
			return err
		}

		slices.SortStableFunc(tags, func(a, b *model.Tag) int {
			if a.Rank != b.Rank {
				return a.Rank - b.Rank
			}
			return CompareCodes(a.Code, b.Code)
		})

		result = make([]*TagWithPath, 0, len(tags))
		for _, t := range tags {
			result = append(result, &TagWithPath{Tag: t, Path: paths[t.ID]})
		}
		return nil
	})
	return result, err
}

// GetQuestionTags 题目当前启用的标签
func (s *Service) GetQuestionTags(ctx context.Context, questionID string) ([]*model.Tag, error) {
	tags, err := s.repo.Tag.GetTagsByQuestionID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question tags: %w", err)
	}
	return tags, nil
}

package taxonomy

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
)

// TreeNode 树节点（只包含启用的标签）
type TreeNode struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Code         string      `json:"code"`
	Depth        int         `json:"depth"`
	Rank         int         `json:"rank"`
	DisciplineID *string     `json:"discipline_id,omitempty"`
	Children     []*TreeNode `json:"children"`
}

func newTreeNode(t *model.Tag) *TreeNode {
	return &TreeNode{
		ID:           t.ID,
		Name:         t.Name,
		Code:         t.Code,
		Depth:        t.Depth,
		Rank:         t.Rank,
		DisciplineID: t.DisciplineID,
		Children:     []*TreeNode{},
	}
}

// Walk 先序遍历，fn 收到节点和从根开始的名称路径
func Walk(nodes []*TreeNode, fn func(node *TreeNode, path []string)) {
	var visit func(n *TreeNode, path []string)
	visit = func(n *TreeNode, path []string) {
		path = append(path[:len(path):len(path)], n.Name)
		fn(n, path)
		for _, c := range n.Children {
			visit(c, path)
		}
	}
	for _, n := range nodes {
		visit(n, nil)
	}
}

// Composer 负责树和路径等只读投影
type Composer struct {
	tags repository.TagStore
}

// NewComposer 创建 Composer
func NewComposer(tags repository.TagStore) *Composer {
	return &Composer{tags: tags}
}

// BuildTree 从给定根标签构建森林
// 一次读取所有启用标签后在内存中组装，停用节点及其子树不可见，环中的节点只出现一次
func (c *Composer) BuildTree(ctx context.Context, roots []*model.Tag) ([]*TreeNode, error) {
	all, err := c.tags.ListAll(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	children := make(map[string][]*model.Tag)
	for _, t := range all {
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t)
		}
	}

	type item struct {
		tag  *model.Tag
		node *TreeNode
	}
	visited := make(map[string]bool)
	forest := []*TreeNode{}
	var queue []item

	for _, r := range roots {
		if r == nil || !r.IsActive() || visited[r.ID] {
			continue
		}
		visited[r.ID] = true
		n := newTreeNode(r)
		forest = append(forest, n)
		queue = append(queue, item{r, n})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ch := range children[cur.tag.ID] {
			if visited[ch.ID] {
				continue
			}
			visited[ch.ID] = true
			n := newTreeNode(ch)
			cur.node.Children = append(cur.node.Children, n)
			queue = append(queue, item{ch, n})
		}
	}
	return forest, nil
}

// BuildFullTree 所有命名空间的森林
func (c *Composer) BuildFullTree(ctx context.Context) ([]*TreeNode, error) {
	roots, err := c.tags.ListRoots(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}
	return c.BuildTree(ctx, roots)
}

// BuildContentTree 只包含编码以数字开头的根
func (c *Composer) BuildContentTree(ctx context.Context) ([]*TreeNode, error) {
	roots, err := c.tags.ListRoots(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}

	content := roots[:0:0]
	for _, r := range roots {
		if r.Code != "" && unicode.IsDigit(rune(r.Code[0])) {
			content = append(content, r)
		}
	}
	return c.BuildTree(ctx, content)
}

// BuildTreeByRootName 只包含指定名称的根（忽略大小写）
func (c *Composer) BuildTreeByRootName(ctx context.Context, name string) ([]*TreeNode, error) {
	roots, err := c.tags.ListRoots(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}

	want := NormalizeName(name)
	var matched []*model.Tag
	for _, r := range roots {
		if strings.EqualFold(r.Name, want) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: root tag %q", ErrNotFound, want)
	}
	return c.BuildTree(ctx, matched)
}

// ResolvePath 返回从根到 id 的标签链
// 父引用悬空或成环时在该处截断
func (c *Composer) ResolvePath(ctx context.Context, id string) ([]*model.Tag, error) {
	tag, err := c.tags.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	if tag == nil {
		return nil, fmt.Errorf("%w: tag %s", ErrNotFound, id)
	}

	chain := []*model.Tag{tag}
	visited := map[string]bool{tag.ID: true}
	for cur := tag; cur.ParentID != nil; {
		parentID := *cur.ParentID
		if visited[parentID] {
			break
		}
		parent, err := c.tags.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent: %w", err)
		}
		if parent == nil {
			break
		}
		visited[parent.ID] = true
		chain = append(chain, parent)
		cur = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

// DisplayPaths 一次读取全部标签，返回 id 到名称路径的映射
func (c *Composer) DisplayPaths(ctx context.Context, sep string) (map[string]string, error) {
	all, err := c.tags.ListAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	byID := make(map[string]*model.Tag, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	paths := make(map[string]string, len(all))
	for _, t := range all {
		var names []string
		visited := make(map[string]bool)
		for cur := t; cur != nil && !visited[cur.ID]; {
			visited[cur.ID] = true
			names = append(names, cur.Name)
			if cur.ParentID == nil {
				break
			}
			cur = byID[*cur.ParentID]
		}
		slices.Reverse(names)
		paths[t.ID] = strings.Join(names, sep)
	}
	return paths, nil
}

// ListInactive 所有停用标签，按编码自然顺序
func (c *Composer) ListInactive(ctx context.Context) ([]*model.Tag, error) {
	tags, err := c.tags.ListInactive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive tags: %w", err)
	}
	slices.SortStableFunc(tags, func(a, b *model.Tag) int {
		return CompareCodes(a.Code, b.Code)
	})
	return tags, nil
}

// JoinNames 用 sep 连接标签链中的名称
func JoinNames(chain []*model.Tag, sep string) string {
	names := make([]string, len(chain))
	for i, t := range chain {
		names[i] = t.Name
	}
	return strings.Join(names, sep)
}

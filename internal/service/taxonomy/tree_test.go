package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/testutil"
)

var ignoreNodeIdentity = cmpopts.IgnoreFields(TreeNode{}, "ID", "Rank", "DisciplineID")

func node(name, code string, depth int, children ...*TreeNode) *TreeNode {
	if children == nil {
		children = []*TreeNode{}
	}
	return &TreeNode{Name: name, Code: code, Depth: depth, Children: children}
}

func TestComposer_TreeVisibility(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))
	ctx := context.Background()

	algebra := testutil.CreateTag(t, db, "ALGEBRA", "1.1", nil, model.TagStatusActive)
	eq := testutil.CreateTag(t, db, "EQUATIONS", "1.1.1", algebra, model.TagStatusInactive)
	testutil.CreateTag(t, db, "LINEAR", "1.1.1.1", eq, model.TagStatusActive)
	fn := testutil.CreateTag(t, db, "FUNCTIONS", "1.1.2", algebra, model.TagStatusActive)
	testutil.CreateTag(t, db, "QUADRATIC", "1.1.2.10", fn, model.TagStatusActive)
	testutil.CreateTag(t, db, "AFFINE", "1.1.2.9", fn, model.TagStatusActive)
	testutil.CreateTag(t, db, "GEOMETRY", "1.2", nil, model.TagStatusInactive)
	testutil.CreateTag(t, db, "ENEM", "V1", nil, model.TagStatusActive)

	// 原始数据的 rank 与编码序号一致
	require.NoError(t, db.Model(&model.Tag{}).Where("code = ?", "1.1.2.9").Update("rank", 9).Error)
	require.NoError(t, db.Model(&model.Tag{}).Where("code = ?", "1.1.2.10").Update("rank", 10).Error)

	content, err := c.BuildContentTree(ctx)
	require.NoError(t, err)

	want := []*TreeNode{
		node("ALGEBRA", "1.1", 1,
			node("FUNCTIONS", "1.1.2", 2,
				node("AFFINE", "1.1.2.9", 3),
				node("QUADRATIC", "1.1.2.10", 3),
			),
		),
	}
	if diff := cmp.Diff(want, content, ignoreNodeIdentity); diff != "" {
		t.Errorf("content tree mismatch (-want +got):\n%s", diff)
	}

	full, err := c.BuildFullTree(ctx)
	require.NoError(t, err)
	require.Len(t, full, 2)
	assert.Equal(t, "V1", full[1].Code)
	assert.Empty(t, full[1].Children)

	// 停用的根传进来也不会出现
	tree, err := c.BuildTree(ctx, []*model.Tag{eq})
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestComposer_TreeByRootName(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))
	ctx := context.Background()

	algebra := testutil.CreateTag(t, db, "ALGEBRA", "1.1", nil, model.TagStatusActive)
	testutil.CreateTag(t, db, "EQUATIONS", "1.1.1", algebra, model.TagStatusActive)
	testutil.CreateTag(t, db, "GEOMETRY", "1.2", nil, model.TagStatusActive)

	tree, err := c.BuildTreeByRootName(ctx, " algebra")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "ALGEBRA", tree[0].Name)
	assert.Len(t, tree[0].Children, 1)

	_, err = c.BuildTreeByRootName(ctx, "physics")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestComposer_ResolvePath(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))
	ctx := context.Background()

	algebra := testutil.CreateTag(t, db, "ALGEBRA", "1.1", nil, model.TagStatusActive)
	fn := testutil.CreateTag(t, db, "FUNCTIONS", "1.1.1", algebra, model.TagStatusActive)
	affine := testutil.CreateTag(t, db, "AFFINE", "1.1.1.1", fn, model.TagStatusActive)

	chain, err := c.ResolvePath(ctx, affine.ID)
	require.NoError(t, err)
	assert.Equal(t, "ALGEBRA > FUNCTIONS > AFFINE", JoinNames(chain, " > "))

	chain, err = c.ResolvePath(ctx, algebra.ID)
	require.NoError(t, err)
	assert.Len(t, chain, 1)

	_, err = c.ResolvePath(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestComposer_PathRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))
	ctx := context.Background()

	algebra := testutil.CreateTag(t, db, "ALGEBRA", "1.1", nil, model.TagStatusActive)
	fn := testutil.CreateTag(t, db, "FUNCTIONS", "1.1.1", algebra, model.TagStatusActive)
	testutil.CreateTag(t, db, "AFFINE", "1.1.1.1", fn, model.TagStatusActive)
	testutil.CreateTag(t, db, "EQUATIONS", "1.1.2", algebra, model.TagStatusActive)
	testutil.CreateTag(t, db, "ENEM", "V1", nil, model.TagStatusActive)

	tree, err := c.BuildFullTree(ctx)
	require.NoError(t, err)

	visited := 0
	Walk(tree, func(n *TreeNode, path []string) {
		visited++
		chain, err := c.ResolvePath(ctx, n.ID)
		require.NoError(t, err)

		names := make([]string, len(chain))
		for i, tag := range chain {
			names[i] = tag.Name
		}
		assert.Equal(t, path, names, n.Code)
		assert.Len(t, chain, n.Depth, n.Code)
	})
	assert.Equal(t, 5, visited)
}

func TestComposer_CycleTolerance(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))
	ctx := context.Background()

	a := testutil.CreateTag(t, db, "A", "1.1", nil, model.TagStatusActive)
	b := testutil.CreateTag(t, db, "B", "1.1.1", a, model.TagStatusActive)
	testutil.SetParent(t, db, a.ID, b.ID)

	chain, err := c.ResolvePath(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, chain, 2)

	tree, err := c.BuildTree(ctx, []*model.Tag{a})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Empty(t, tree[0].Children[0].Children, "A appears only once")

	paths, err := c.DisplayPaths(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "A/B", paths[b.ID])
}

func TestComposer_DanglingParent(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))

	orphan := testutil.CreateTag(t, db, "ORPHAN", "1.9.1", nil, model.TagStatusActive)
	testutil.SetParent(t, db, orphan.ID, "gone")

	chain, err := c.ResolvePath(context.Background(), orphan.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "ORPHAN", chain[0].Name)
}

func TestComposer_ListInactive(t *testing.T) {
	db := testutil.NewTestDB(t)
	c := NewComposer(repository.NewTagRepository(db))

	root := testutil.CreateTag(t, db, "ALGEBRA", "1.1", nil, model.TagStatusActive)
	testutil.CreateTag(t, db, "X", "1.1.10", root, model.TagStatusInactive)
	testutil.CreateTag(t, db, "Y", "1.1.9", root, model.TagStatusInactive)
	testutil.CreateTag(t, db, "Z", "V2", nil, model.TagStatusInactive)
	testutil.CreateTag(t, db, "W", "1.1.1", root, model.TagStatusActive)

	tags, err := c.ListInactive(context.Background())
	require.NoError(t, err)

	codes := make([]string, len(tags))
	for i, tag := range tags {
		codes[i] = tag.Code
	}
	assert.Equal(t, []string{"1.1.9", "1.1.10", "V2"}, codes)
}

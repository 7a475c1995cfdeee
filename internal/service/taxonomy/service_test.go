package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/service/event"
	"github.com/ashwinyue/questbank/internal/testutil"
)

func newTestService(t *testing.T, opts Options) (*Service, *gorm.DB, *model.Discipline) {
	t.Helper()
	db := testutil.NewTestDB(t)
	mat := testutil.CreateDiscipline(t, db, "MAT", 1)
	return NewService(repository.NewRepositories(db), nil, opts, nil), db, mat
}

func TestService_ContentScenario(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.1", algebra.Code)

	eq, err := svc.CreateContentTag(ctx, "EQUATIONS", &algebra.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1", eq.Code)
	assert.Equal(t, 2, eq.Depth)

	ok, err := svc.InactivateTag(ctx, eq.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	fn, err := svc.CreateContentTag(ctx, "FUNCTIONS", &algebra.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.1.2", fn.Code, "code of the inactive sibling is not reused")

	_, err = svc.CreateContentTag(ctx, "equations", &algebra.ID, nil)
	assert.True(t, errors.Is(err, ErrConflict), "inactive names stay reserved")

	tree, err := svc.GetContentTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "FUNCTIONS", tree[0].Children[0].Name)

	inactive, err := svc.GetInactiveFlat(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, eq.ID, inactive[0].ID)

	path, err := svc.ResolveDisplayPath(ctx, fn.ID)
	require.NoError(t, err)
	assert.Equal(t, "ALGEBRA > FUNCTIONS", path)
}

func TestService_ExamSourceScenario(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	enem, err := svc.CreateExamSourceTag(ctx, "enem", nil)
	require.NoError(t, err)
	assert.Equal(t, "V1", enem.Code)
	assert.Equal(t, "ENEM", enem.Name)

	can, err := svc.CanCreateChildUnder(ctx, enem.ID)
	require.NoError(t, err)
	assert.False(t, can)

	_, err = svc.CreateContentTag(ctx, "X", &enem.ID, nil)
	assert.True(t, errors.Is(err, ErrConstraint))

	_, err = svc.CreateExamSourceTag(ctx, "ENEM 2020", &enem.ID)
	assert.True(t, errors.Is(err, ErrConstraint), "exam sources are leaf-only")

	first, err := svc.CreateGradeLevelTag(ctx, "1st year", nil)
	require.NoError(t, err)
	assert.Equal(t, "N1", first.Code)

	_, err = svc.CreateGradeLevelTag(ctx, "1st year A", &first.ID)
	assert.True(t, errors.Is(err, ErrConstraint), "grade levels are leaf-only")

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	_, err = svc.CreateGradeLevelTag(ctx, "Y", &algebra.ID)
	assert.True(t, errors.Is(err, ErrConstraint), "namespace mismatch")

	_, err = svc.CreateExamSourceTag(ctx, "Z", strPtr("missing"))
	assert.True(t, errors.Is(err, ErrNotFound))

	sources, err := svc.ListExamSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, enem.ID, sources[0].ID)

	grades, err := svc.ListGradeLevels(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, first.ID, grades[0].ID)
}

func TestService_DeleteRequiresNoQuestions(t *testing.T) {
	svc, db, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	testutil.LinkQuestion(t, db, algebra.ID, true)

	_, err = svc.DeleteTag(ctx, algebra.ID)
	assert.True(t, errors.Is(err, ErrConstraint))

	ok, err := svc.InactivateTag(ctx, algebra.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_PublishesCommittedChanges(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	bus := event.NewEventBus(event.NewMemoryStore(16), nil)
	svc.WithPublisher(bus)
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	eq, err := svc.CreateContentTag(ctx, "EQUATIONS", &algebra.ID, nil)
	require.NoError(t, err)

	// 被拒绝的操作不发布事件
	_, err = svc.InactivateTag(ctx, algebra.ID)
	require.Error(t, err)
	_, err = svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.Error(t, err)

	_, err = svc.InactivateTag(ctx, eq.ID)
	require.NoError(t, err)
	require.NoError(t, svc.SetQuestionTags(ctx, "q1", []string{algebra.ID}))

	events, err := bus.Recent(ctx, "", 0)
	require.NoError(t, err)
	var types []event.EventType
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []event.EventType{
		event.EventQuestionTagsSet,
		event.EventTagInactivated,
		event.EventTagCreated,
		event.EventTagCreated,
	}, types)
	assert.Equal(t, "1.1.1", events[1].Code)
	assert.Equal(t, "q1", events[0].Metadata["question_id"])
}

func TestService_RepeatedDeactivateIsSilent(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	bus := event.NewEventBus(event.NewMemoryStore(16), nil)
	svc.WithPublisher(bus)
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := svc.InactivateTag(ctx, algebra.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := svc.DeleteTag(ctx, algebra.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	events, err := bus.Recent(ctx, algebra.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2, "only the first inactivation changes state")
	assert.Equal(t, event.EventTagInactivated, events[0].EventType)
	assert.Equal(t, event.EventTagCreated, events[1].EventType)
}

func TestService_TreeReadSurvivesCallerCancel(t *testing.T) {
	svc, db, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	_, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)

	// 占住唯一的连接，让合并后的读取停在等待连接上
	hold := db.Begin()
	require.NoError(t, hold.Error)

	first, cancel := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetFullTree(first)
		firstErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	type result struct {
		nodes []*TreeNode
		err   error
	}
	second := make(chan result, 1)
	go func() {
		nodes, err := svc.GetFullTree(ctx)
		second <- result{nodes, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	require.NoError(t, hold.Rollback().Error)

	select {
	case res := <-second:
		require.NoError(t, res.err)
		require.Len(t, res.nodes, 1)
		assert.Equal(t, "ALGEBRA", res.nodes[0].Name)
	case <-time.After(5 * time.Second):
		t.Fatal("shared tree read did not finish")
	}
}

func TestService_StrictInactivate(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictInactivate = true
	svc, db, mat := newTestService(t, opts)
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	testutil.LinkQuestion(t, db, algebra.ID, false)

	_, err = svc.InactivateTag(ctx, algebra.ID)
	assert.True(t, errors.Is(err, ErrConstraint))
}

func TestService_ReactivateAndRename(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	eq, err := svc.CreateContentTag(ctx, "EQUATIONS", &algebra.ID, nil)
	require.NoError(t, err)

	_, err = svc.InactivateTag(ctx, algebra.ID)
	assert.True(t, errors.Is(err, ErrConstraint), "active child blocks")

	_, err = svc.InactivateTag(ctx, eq.ID)
	require.NoError(t, err)
	_, err = svc.InactivateTag(ctx, algebra.ID)
	require.NoError(t, err)

	_, err = svc.ReactivateTag(ctx, eq.ID)
	assert.True(t, errors.Is(err, ErrConstraint))

	_, err = svc.ReactivateTag(ctx, algebra.ID)
	require.NoError(t, err)
	_, err = svc.ReactivateTag(ctx, eq.ID)
	require.NoError(t, err)

	renamed, err := svc.RenameTag(ctx, eq.ID, "linear equations")
	require.NoError(t, err)
	assert.Equal(t, "LINEAR EQUATIONS", renamed.Name)
	assert.Equal(t, "1.1.1", renamed.Code)

	detail, err := svc.GetTag(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, "ALGEBRA > LINEAR EQUATIONS", detail.Path)
	assert.True(t, detail.CanHaveChildren)
	assert.Equal(t, int64(0), detail.QuestionCount)
}

func TestService_FailedCreateRollsBack(t *testing.T) {
	svc, db, _ := newTestService(t, DefaultOptions())
	ctx := context.Background()

	_, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, nil)
	assert.True(t, errors.Is(err, ErrValidation))

	var count int64
	require.NoError(t, db.Model(&model.Tag{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_ConcurrentCreatesGetDistinctCodes(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, err := svc.CreateContentTag(ctx, fmt.Sprintf("TOPIC %d", i), &algebra.ID, nil)
			errs[i] = err
			if err == nil {
				codes[i] = tag.Code
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[codes[i]], "duplicate code %s", codes[i])
		seen[codes[i]] = true
	}
	assert.Len(t, seen, n)
}

func TestService_Lookups(t *testing.T) {
	svc, _, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	_, err = svc.CreateContentTag(ctx, "EQUATIONS", &algebra.ID, nil)
	require.NoError(t, err)
	_, err = svc.CreateExamSourceTag(ctx, "ENEM", nil)
	require.NoError(t, err)

	byCode, err := svc.GetTagByCode(ctx, "1.1")
	require.NoError(t, err)
	assert.Equal(t, algebra.ID, byCode.ID)

	_, err = svc.GetTagByCode(ctx, "9.9")
	assert.True(t, errors.Is(err, ErrNotFound))

	children, err := svc.ListChildrenByCode(ctx, "1.1")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "1.1.1", children[0].Code)

	flat, err := svc.ListActiveWithPaths(ctx, 0)
	require.NoError(t, err)
	require.Len(t, flat, 3)
	assert.Equal(t, "ALGEBRA", flat[0].Path)
	assert.Equal(t, "ALGEBRA > EQUATIONS", flat[1].Path)
	assert.Equal(t, "V1", flat[2].Code, "exam sources sort after content")

	depth2, err := svc.ListActiveWithPaths(ctx, 2)
	require.NoError(t, err)
	require.Len(t, depth2, 1)
	assert.Equal(t, "ALGEBRA > EQUATIONS", depth2[0].Path)

	full, err := svc.GetFullTree(ctx)
	require.NoError(t, err)
	assert.Len(t, full, 2)

	byName, err := svc.GetTreeByRootName(ctx, "algebra")
	require.NoError(t, err)
	require.Len(t, byName, 1)
}

func TestService_QuestionTags(t *testing.T) {
	svc, db, mat := newTestService(t, DefaultOptions())
	ctx := context.Background()

	algebra, err := svc.CreateContentTag(ctx, "ALGEBRA", nil, &mat.ID)
	require.NoError(t, err)
	enem, err := svc.CreateExamSourceTag(ctx, "ENEM", nil)
	require.NoError(t, err)
	old := testutil.CreateTag(t, db, "OLD", "1.9", nil, model.TagStatusInactive)

	require.NoError(t, svc.SetQuestionTags(ctx, "q1", []string{algebra.ID, enem.ID, algebra.ID}))
	tags, err := svc.GetQuestionTags(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	err = svc.SetQuestionTags(ctx, "q1", []string{old.ID})
	assert.True(t, errors.Is(err, ErrConstraint))

	err = svc.SetQuestionTags(ctx, "q1", []string{"missing"})
	assert.True(t, errors.Is(err, ErrNotFound))

	tags, err = svc.GetQuestionTags(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, tags, 2, "failed replacement leaves links untouched")

	_, err = svc.DeleteTag(ctx, enem.ID)
	assert.True(t, errors.Is(err, ErrConstraint))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "validation", KindOf(fmt.Errorf("%w: x", ErrValidation)))
	assert.Equal(t, "conflict", KindOf(asConflict(repository.ErrDuplicate)))
	assert.Equal(t, "internal", KindOf(errors.New("boom")))
	assert.Equal(t, "", KindOf(nil))

	assert.True(t, IsRetryable(asConflict(fmt.Errorf("insert: %w", repository.ErrDuplicate))))
	assert.False(t, IsRetryable(fmt.Errorf("%w: name taken", ErrConflict)))
}
